// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/mail"
	"github.com/CrawX/go-imap-mailtool/predicate"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Folder is a handle to one mailbox of a Store. The type is resolved with
// LIST on first use unless the handle came from a listing.
type Folder struct {
	store *Store
	name  string

	resolved bool
	exists   bool
	typ      domain.FolderType

	state domain.FolderState
	// uids flagged as deleted since the folder was opened
	deleted map[uint32]bool
}

func (f *Folder) FullName() string {
	return f.name
}

func (f *Folder) Name() string {
	if i := strings.LastIndex(f.name, string(f.store.delimiter)); i >= 0 {
		return f.name[i+1:]
	}
	return f.name
}

func (f *Folder) Separator() rune {
	return f.store.delimiter
}

func (f *Folder) Type() domain.FolderType {
	if err := f.resolve(); err != nil {
		f.store.l.WithFields(logrus.Fields{"folder": f.name, "error": err}).Debug("Could not resolve folder type")
	}
	if !f.exists {
		return domain.HoldsMessages | domain.HoldsFolders
	}
	return f.typ
}

func (f *Folder) State() domain.FolderState {
	return f.state
}

func (f *Folder) Parent() (domain.Folder, error) {
	if len(f.name) == 0 {
		return nil, nil
	}
	if i := strings.LastIndex(f.name, string(f.store.delimiter)); i >= 0 {
		return f.store.Folder(f.name[:i])
	}
	return f.store.DefaultFolder()
}

func (f *Folder) Store() domain.MailStore {
	return f.store
}

// typeOf maps LIST attributes to the capabilities of a mailbox.
func typeOf(attributes []string) domain.FolderType {
	t := domain.HoldsMessages | domain.HoldsFolders
	for _, a := range attributes {
		switch {
		case strings.EqualFold(a, imap.NoSelectAttr):
			t &^= domain.HoldsMessages
		case strings.EqualFold(a, imap.NoInferiorsAttr):
			t &^= domain.HoldsFolders
		}
	}
	return t
}

func (f *Folder) resolve() error {
	if f.resolved {
		return nil
	}
	if err := f.checkConnected("resolve folder"); err != nil {
		return err
	}

	infos, err := f.store.list(f.name)
	if err != nil {
		return f.store.wrap("list folder "+f.name, err)
	}

	f.resolved = true
	f.exists = false
	for _, info := range infos {
		if imap.CanonicalMailboxName(info.Name) == imap.CanonicalMailboxName(f.name) {
			f.exists = true
			f.typ = typeOf(info.Attributes)
		}
	}
	return nil
}

func (f *Folder) Exists() (bool, error) {
	f.resolved = false
	if err := f.resolve(); err != nil {
		return false, err
	}
	return f.exists, nil
}

func (f *Folder) Create(t domain.FolderType) error {
	if err := f.checkConnected("create folder"); err != nil {
		return err
	}
	exists, err := f.Exists()
	if err != nil {
		return err
	}
	if exists {
		return &domain.FolderStateError{Folder: f.name, Op: "create", State: f.state}
	}

	name := f.name
	// a trailing delimiter asks for a folder that only holds folders
	if !t.HoldsMessages() {
		name += string(f.store.delimiter)
	}
	if err := f.store.client.Create(name); err != nil {
		return f.store.wrap("create folder "+f.name, err)
	}

	f.store.l.WithFields(logrus.Fields{"folder": f.name, "type": t}).Debug("Created folder")
	f.resolved = false
	return f.resolve()
}

func (f *Folder) Open(mode domain.OpenMode) error {
	if err := f.checkConnected("open folder"); err != nil {
		return err
	}
	if f.state != domain.Closed {
		return &domain.FolderStateError{Folder: f.name, Op: "open", State: f.state}
	}
	if other := f.store.selected; other != nil {
		return &domain.FolderStateError{Folder: other.name, Op: "open " + f.name + " while", State: other.state}
	}
	if !f.Type().HoldsMessages() {
		return fmt.Errorf("folder %q cannot hold messages", f.name)
	}

	_, err := f.store.client.Select(f.name, mode == domain.ReadOnly)
	if err != nil {
		return f.store.wrap("select folder "+f.name, err)
	}

	f.state = mode.State()
	f.deleted = map[uint32]bool{}
	f.store.selected = f
	return nil
}

// Close expunges the messages flagged as deleted in this session if asked to.
// Deselecting never expunges anything else.
func (f *Folder) Close(expunge bool) error {
	if f.state == domain.Closed {
		return &domain.FolderStateError{Folder: f.name, Op: "close", State: f.state}
	}

	var expungeErr error
	if expunge && f.state == domain.OpenWrite && len(f.deleted) > 0 {
		uids := make([]uint32, 0, len(f.deleted))
		for uid := range f.deleted {
			uids = append(uids, uid)
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

		expungeErr = f.store.expunger.expunge(uids)
		if expungeErr == nil {
			f.store.l.WithFields(logrus.Fields{"folder": f.name, "count": len(uids)}).Debug("Expunged messages")
		}
	}

	// CLOSE on a read-write mailbox expunges, so switch to read-only first
	var err error
	if f.state == domain.OpenWrite {
		_, err = f.store.client.Select(f.name, true)
	}
	if err == nil {
		err = f.store.client.Close()
	}

	f.state = domain.Closed
	f.deleted = nil
	f.store.selected = nil

	if expungeErr != nil {
		return expungeErr
	}
	return f.store.wrap("close folder "+f.name, err)
}

func (f *Folder) List() ([]domain.Folder, error) {
	if err := f.checkConnected("list folder"); err != nil {
		return nil, err
	}
	if f.state != domain.Closed || !f.Type().HoldsFolders() {
		return nil, &domain.FolderStateError{Folder: f.name, Op: "list", State: f.state}
	}

	pattern := "%"
	prefix := ""
	if len(f.name) > 0 {
		prefix = f.name + string(f.store.delimiter)
		pattern = prefix + "%"
	}

	infos, err := f.store.list(pattern)
	if err != nil {
		return nil, f.store.wrap("list folder "+f.name, err)
	}

	children := []domain.Folder{}
	for _, info := range infos {
		name := strings.TrimSuffix(info.Name, string(f.store.delimiter))
		if name == f.name || !strings.HasPrefix(name, prefix) {
			continue
		}
		children = append(children, &Folder{
			store:    f.store,
			name:     name,
			resolved: true,
			exists:   true,
			typ:      typeOf(info.Attributes),
		})
	}
	return children, nil
}

func (f *Folder) MessageCount() (int, error) {
	if err := f.checkConnected("count messages"); err != nil {
		return 0, err
	}
	if f.state != domain.Closed {
		return int(f.store.client.Mailbox().Messages), nil
	}

	status, err := f.store.client.Status(f.name, []imap.StatusItem{imap.StatusMessages})
	if err != nil {
		return 0, f.store.wrap("count messages in "+f.name, err)
	}
	return int(status.Messages), nil
}

// Search narrows on the server if m is a predicate and filters the result
// with Match.
func (f *Folder) Search(m domain.Matcher) ([]*domain.Message, error) {
	if err := f.checkOpen("search"); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	if p, ok := m.(predicate.Predicate); ok {
		criteria = Translate(p)
	}

	uids, err := f.store.client.UidSearch(criteria)
	if err != nil {
		return nil, f.store.wrap("search folder "+f.name, err)
	}
	logger := f.store.l.WithFields(logrus.Fields{"folder": f.name, "candidates": len(uids)})
	logger.Debug("Searched folder")

	result := []*domain.Message{}
	if len(uids) == 0 {
		return result, nil
	}

	for _, batch := range partitionUids(uids, BatchSize) {
		msgs, err := f.fetchMetadata(batch)
		if err != nil {
			return nil, err
		}
		for _, msg := range msgs {
			if m.Match(msg) {
				result = append(result, msg)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Uid < result[j].Uid })
	logger.WithField("matches", len(result)).Debug("Filtered search result")
	return result, nil
}

func (f *Folder) fetchMetadata(uids []uint32) ([]*domain.Message, error) {
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.store.client.UidFetch(seqSetOf(uids), metadataItems, messages)
	}()

	result := []*domain.Message{}
	for msg := range messages {
		result = append(result, convertMessage(f, msg))
	}

	if err := <-done; err != nil {
		return nil, f.store.wrap("fetch messages from "+f.name, err)
	}
	return result, nil
}

func (f *Folder) SetFlags(msgs []*domain.Message, flag domain.Flag, value bool) error {
	if err := f.checkOpen("set flags on"); err != nil {
		return err
	}
	if f.state != domain.OpenWrite {
		return &domain.FolderStateError{Folder: f.name, Op: "set flags on", State: f.state}
	}
	if err := f.checkOwned(msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	var op imap.FlagsOp = imap.AddFlags
	if !value {
		op = imap.RemoveFlags
	}
	uids := uidsOf(msgs)
	err := f.store.client.UidStore(seqSetOf(uids), imap.FormatFlagsOp(op, true), []interface{}{string(flag)}, nil)
	if err != nil {
		return f.store.wrap("set flag "+string(flag)+" in "+f.name, err)
	}

	deleted := strings.EqualFold(string(flag), string(domain.DeletedFlag))
	for _, m := range msgs {
		m.Flags = domain.WithFlag(m.Flags, flag, value)
		if deleted {
			if value {
				f.deleted[m.Uid] = true
			} else {
				delete(f.deleted, m.Uid)
			}
		}
	}
	return nil
}

// CopyMessages uses UID COPY within the session. Other stores get the full
// messages streamed into AppendMessages, dest has to be open for writing.
func (f *Folder) CopyMessages(msgs []*domain.Message, dest domain.Folder) error {
	if err := f.checkOpen("copy from"); err != nil {
		return err
	}
	if err := f.checkOwned(msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	if other, ok := dest.(*Folder); ok && other.store == f.store {
		err := f.store.client.UidCopy(seqSetOf(uidsOf(msgs)), other.name)
		if err != nil {
			return f.store.wrap("copy messages to "+other.name, err)
		}
		return nil
	}

	appender, ok := dest.(domain.Appender)
	if !ok {
		return fmt.Errorf("folder %q does not accept messages from another store", dest.FullName())
	}
	if dest.State() != domain.OpenWrite {
		return &domain.FolderStateError{Folder: dest.FullName(), Op: "copy into", State: dest.State()}
	}

	g, ctx := errgroup.WithContext(context.Background())
	raws := make(chan *domain.RawMessage, 10)

	g.Go(func() error {
		defer close(raws)
		return f.FetchRaw(msgs, func(m *domain.Message, raw *domain.RawMessage) error {
			select {
			case raws <- raw:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	g.Go(func() error {
		for raw := range raws {
			if err := appender.AppendMessages([]*domain.RawMessage{raw}); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// FetchRaw streams the full messages to fn in server order. After fn fails
// the remaining messages are drained and the error is returned.
func (f *Folder) FetchRaw(msgs []*domain.Message, fn func(m *domain.Message, raw *domain.RawMessage) error) error {
	if err := f.checkOpen("fetch from"); err != nil {
		return err
	}
	if err := f.checkOwned(msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	byUid := map[uint32]*domain.Message{}
	for _, m := range msgs {
		byUid[m.Uid] = m
	}

	fullBodySection := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, fullBodySection.FetchItem()}

	for _, batch := range partitionUids(uidsOf(msgs), BatchSize) {
		messages := make(chan *imap.Message, 10)
		done := make(chan error, 1)
		go func() {
			done <- f.store.client.UidFetch(seqSetOf(batch), items, messages)
		}()

		var fnErr error
		for msg := range messages {
			if fnErr != nil {
				continue
			}
			m, ok := byUid[msg.Uid]
			if !ok {
				continue
			}

			r := msg.GetBody(fullBodySection)
			if r == nil {
				fnErr = fmt.Errorf("server returned no body for message %d", msg.Uid)
				continue
			}
			body, err := io.ReadAll(r)
			if err != nil {
				fnErr = fmt.Errorf("could not read mail body: %w", err)
				continue
			}

			fnErr = fn(m, &domain.RawMessage{
				Flags: convertFlags(msg.Flags),
				Date:  msg.InternalDate,
				Body:  body,
			})
		}

		if err := <-done; err != nil {
			return f.store.wrap("fetch messages from "+f.name, err)
		}
		if fnErr != nil {
			return fnErr
		}
	}
	return nil
}

func (f *Folder) AppendMessages(msgs []*domain.RawMessage) error {
	if err := f.checkOpen("append to"); err != nil {
		return err
	}
	if f.state != domain.OpenWrite {
		return &domain.FolderStateError{Folder: f.name, Op: "append to", State: f.state}
	}

	for _, raw := range msgs {
		err := f.store.client.Append(f.name, appendFlags(raw.Flags), raw.Date, bytes.NewReader(raw.Body))
		if err != nil {
			return f.store.wrap("append to "+f.name, err)
		}
	}
	return nil
}

func (f *Folder) Headers(msg *domain.Message) ([]domain.HeaderField, error) {
	if err := f.checkOpen("read headers in"); err != nil {
		return nil, err
	}
	if err := f.checkOwned([]*domain.Message{msg}); err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- f.store.client.UidFetch(seqSetOf([]uint32{msg.Uid}), []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var raw []byte
	var readErr error
	for m := range messages {
		r := m.GetBody(section)
		if r == nil {
			continue
		}
		raw, readErr = io.ReadAll(r)
	}

	if err := <-done; err != nil {
		return nil, f.store.wrap("fetch headers from "+f.name, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("could not read header: %w", readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %d is not in folder %q", msg.Uid, f.name)
	}
	return mail.Headers(raw)
}

func (f *Folder) checkConnected(op string) error {
	if f.store.closed {
		return &domain.ConnectionError{Op: op, Err: ErrStoreClosed}
	}
	return nil
}

func (f *Folder) checkOpen(op string) error {
	if err := f.checkConnected(op); err != nil {
		return err
	}
	if f.state == domain.Closed {
		return &domain.FolderStateError{Folder: f.name, Op: op, State: f.state}
	}
	return nil
}

func (f *Folder) checkOwned(msgs []*domain.Message) error {
	for _, m := range msgs {
		if owner, ok := m.Folder.(*Folder); ok && (owner.store != f.store || owner.name != f.name) {
			return fmt.Errorf("message %d belongs to folder %q", m.Uid, owner.FullName())
		}
	}
	return nil
}
