// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

//go:generate mockgen -destination=mocks/persistence.go -package=mocks . Persistence
type SaveRecipient struct {
	Type    RecipientType
	Address string
}

type SaveAttachment struct {
	MimeType string
	Filename string
	Size     int64
}

type SaveMessage struct {
	Folder      string
	From        string
	SentDate    time.Time
	Subject     string
	Size        int64
	Recipients  []SaveRecipient
	Attachments []SaveAttachment
}

// IDCache maps folder names and addresses to their row ids. One cache covers
// one run against one database.
type IDCache struct {
	Folders   map[string]int64
	Addresses map[string]int64
}

func NewIDCache() *IDCache {
	return &IDCache{
		Folders:   map[string]int64{},
		Addresses: map[string]int64{},
	}
}

type Persistence interface {
	Close() error
	SaveMessage(cache *IDCache, msg SaveMessage) (int64, error)
}
