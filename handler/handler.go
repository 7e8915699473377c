// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the per-match handlers of a search.
package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"
)

type Kind string

const (
	KindSimple   = Kind("simple")
	KindTabular  = Kind("tabular")
	KindHeaders  = Kind("headers")
	KindDatabase = Kind("database")
)

var Kinds = []Kind{KindSimple, KindTabular, KindHeaders, KindDatabase}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown handler %q", s)
}

// New creates the handler of the given kind. Only the database handler needs
// a persistence.
func New(kind Kind, out io.Writer, p domain.Persistence) (domain.MessageHandler, error) {
	switch kind {
	case KindSimple:
		return NewSimple(out), nil
	case KindTabular:
		return NewTabular(out), nil
	case KindHeaders:
		return NewHeaders(out), nil
	case KindDatabase:
		if p == nil {
			return nil, fmt.Errorf("database handler requires a database")
		}
		return NewDatabase(p, domain.NewIDCache()), nil
	}
	return nil, fmt.Errorf("unknown handler %q", kind)
}

const dateLayout = "2006-01-02 15:04:05"

func flagsString(m *domain.Message) string {
	names := []string{}
	for _, f := range []struct {
		flag domain.Flag
		name string
	}{
		{domain.AnsweredFlag, "ANSWERED"},
		{domain.DeletedFlag, "DELETED"},
		{domain.DraftFlag, "DRAFT"},
		{domain.FlaggedFlag, "FLAGGED"},
		{domain.RecentFlag, "RECENT"},
		{domain.SeenFlag, "SEEN"},
	} {
		if m.HasFlag(f.flag) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, " | ")
}

func firstAddress(list []domain.Address) string {
	if len(list) == 0 {
		return "NULL"
	}
	return list[0].Address
}

func folderName(m *domain.Message) string {
	if m.Folder == nil {
		return ""
	}
	return m.Folder.FullName()
}
