// SPDX-License-Identifier: GPL-3.0-or-later

// Package imapconnection implements the mail store contracts on top of an IMAP
// session.
package imapconnection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"

	"github.com/emersion/go-imap"
	compress "github.com/emersion/go-imap-compress"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/sirupsen/logrus"
)

var ErrStoreClosed = errors.New("store is closed")

func init() {
	imap.CharsetReader = charset.Reader
}

type Options struct {
	Password string
	// Compress enables COMPRESS=DEFLATE if the server supports it.
	Compress  bool
	TLSConfig *tls.Config
}

// Store is one authenticated IMAP session. At most one folder is selected at
// a time.
type Store struct {
	client    *client.Client
	expunger  expunger
	endpoint  *Endpoint
	delimiter rune

	selected *Folder
	closed   bool

	l *logrus.Logger
}

type contextDialer struct {
	ctx    context.Context
	dialer *net.Dialer
}

func (d *contextDialer) Dial(network, address string) (net.Conn, error) {
	return d.dialer.DialContext(d.ctx, network, address)
}

func Connect(ctx context.Context, ep *Endpoint, opts Options) (*Store, error) {
	l := log.Logger(log.LOG_IMAP)
	baseLogger := l.WithFields(logrus.Fields{"server": ep.Host, "user": ep.User})

	dialer := &contextDialer{ctx: ctx, dialer: &net.Dialer{}}
	var imapClient *client.Client
	var err error
	if ep.TLS {
		imapClient, err = client.DialWithDialerTLS(dialer, ep.Host, opts.TLSConfig)
	} else {
		imapClient, err = client.DialWithDialer(dialer, ep.Host)
	}
	if err != nil {
		return nil, &domain.ConnectionError{Op: "dial to imap", Err: err}
	}

	if l.IsLevelEnabled(logrus.TraceLevel) {
		imapClient.SetDebug(l.WriterLevel(logrus.TraceLevel))
	}

	if !ep.TLS {
		startTLS, err := imapClient.SupportStartTLS()
		if err != nil {
			return nil, &domain.ConnectionError{Op: "check for STARTTLS support", Err: err}
		}
		if startTLS {
			tlsConfig := opts.TLSConfig
			if tlsConfig == nil {
				host, _, _ := net.SplitHostPort(ep.Host)
				tlsConfig = &tls.Config{ServerName: host}
			}
			if err := imapClient.StartTLS(tlsConfig); err != nil {
				return nil, &domain.ConnectionError{Op: "start tls", Err: err}
			}
		} else {
			baseLogger.Warn("STARTTLS not supported on server, credentials are sent in plain text")
		}
	}

	password := opts.Password
	if len(password) == 0 {
		password = ep.Password
	}
	err = imapClient.Login(ep.User, password)
	if err != nil {
		return nil, &domain.ConnectionError{Op: "login to imap", Err: err}
	}
	baseLogger.Debug("Logged in to server")

	if opts.Compress {
		compressClient := compress.NewClient(imapClient)
		supported, err := compressClient.SupportCompress(compress.Deflate)
		if err != nil {
			return nil, &domain.ConnectionError{Op: "check for COMPRESS support", Err: err}
		}
		if supported {
			if err := compressClient.Compress(compress.Deflate); err != nil {
				return nil, &domain.ConnectionError{Op: "enable compression", Err: err}
			}
			baseLogger.Debug("COMPRESS=DEFLATE enabled")
		} else {
			baseLogger.Info("COMPRESS=DEFLATE not supported on server")
		}
	}

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		return nil, &domain.ConnectionError{Op: "check for UIDPLUS support", Err: err}
	}

	store := &Store{
		client:   imapClient,
		endpoint: ep,
		l:        l,
	}

	if uidPlusSupported {
		baseLogger.Debug("UIDPLUS supported on server, using UID expunge")
		store.expunger = &uidPlusExpunger{imapConn: uidPlusClient}
	} else {
		baseLogger.Info("UIDPLUS not supported on server, falling back to plain expunge")
		store.expunger = &compatibilityExpunger{imapConn: imapClient}
	}

	store.delimiter, err = store.hierarchyDelimiter()
	if err != nil {
		return nil, err
	}
	baseLogger.WithField("delimiter", string(store.delimiter)).Debug("Resolved hierarchy delimiter")

	return store, nil
}

// hierarchyDelimiter asks the server with LIST "" "".
func (s *Store) hierarchyDelimiter() (rune, error) {
	infos, err := s.list("")
	if err != nil {
		return 0, &domain.ConnectionError{Op: "resolve hierarchy delimiter", Err: err}
	}
	for _, info := range infos {
		if len(info.Delimiter) > 0 {
			return []rune(info.Delimiter)[0], nil
		}
	}
	// flat namespace
	return '/', nil
}

func (s *Store) list(pattern string) ([]*imap.MailboxInfo, error) {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.client.List("", pattern, ch)
	}()

	infos := []*imap.MailboxInfo{}
	for info := range ch {
		infos = append(infos, info)
	}

	if err := <-done; err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *Store) DefaultFolder() (domain.Folder, error) {
	if s.closed {
		return nil, &domain.ConnectionError{Op: "get default folder", Err: ErrStoreClosed}
	}
	return s.folder(""), nil
}

func (s *Store) Folder(name string) (domain.Folder, error) {
	if s.closed {
		return nil, &domain.ConnectionError{Op: "get folder", Err: ErrStoreClosed}
	}
	return s.folder(strings.Trim(name, string(s.delimiter))), nil
}

func (s *Store) folder(name string) *Folder {
	f := &Folder{store: s, name: name}
	if len(name) == 0 {
		f.typ = domain.HoldsFolders
		f.resolved = true
		f.exists = true
	}
	return f
}

// Endpoint returns the address the session is connected to.
func (s *Store) Endpoint() *Endpoint {
	return s.endpoint
}

func (s *Store) Close() error {
	if s.closed {
		return &domain.ConnectionError{Op: "close store", Err: ErrStoreClosed}
	}
	s.closed = true

	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("could not logout: %w", err)
	}
	s.l.WithFields(logrus.Fields{"server": s.endpoint.Host}).Debug("Logged out")
	return nil
}

// wrap marks errors after which the session is unusable as connection errors.
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if s.closed || s.client.State() == imap.LogoutState {
		return &domain.ConnectionError{Op: op, Err: err}
	}
	return fmt.Errorf("could not %s: %w", op, err)
}
