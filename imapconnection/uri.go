// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Endpoint is a parsed imap[s]://user@host[:port]/[folder] URI.
type Endpoint struct {
	TLS      bool
	Host     string
	User     string
	Password string
	// Folder is empty for the root of the store.
	Folder string
}

func ParseURI(uri string) (*Endpoint, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("could not parse uri: %w", err)
	}

	ep := &Endpoint{}
	switch strings.ToLower(u.Scheme) {
	case "imap":
	case "imaps":
		ep.TLS = true
	default:
		return nil, fmt.Errorf("unsupported scheme %q, expected imap or imaps", u.Scheme)
	}

	if len(u.Hostname()) == 0 {
		return nil, fmt.Errorf("uri %q has no host", uri)
	}
	port := u.Port()
	if len(port) == 0 {
		port = "143"
		if ep.TLS {
			port = "993"
		}
	}
	ep.Host = net.JoinHostPort(u.Hostname(), port)

	if u.User == nil || len(u.User.Username()) == 0 {
		return nil, fmt.Errorf("uri %q has no user", uri)
	}
	ep.User = u.User.Username()
	ep.Password, _ = u.User.Password()
	ep.Folder = strings.Trim(u.Path, "/")

	return ep, nil
}

// Account identifies the endpoint in password lookups.
func (e *Endpoint) Account() string {
	return e.User + "@" + e.Host
}

func (e *Endpoint) String() string {
	scheme := "imap"
	if e.TLS {
		scheme = "imaps"
	}
	u := url.URL{Scheme: scheme, User: url.User(e.User), Host: e.Host, Path: "/" + e.Folder}
	return u.String()
}
