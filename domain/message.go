// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"strings"
	"time"
)

type Flag string

const (
	SeenFlag     = Flag("\\Seen")
	AnsweredFlag = Flag("\\Answered")
	FlaggedFlag  = Flag("\\Flagged")
	DeletedFlag  = Flag("\\Deleted")
	DraftFlag    = Flag("\\Draft")
	RecentFlag   = Flag("\\Recent")
)

type RecipientType string

const (
	To  = RecipientType("TO")
	Cc  = RecipientType("CC")
	Bcc = RecipientType("BCC")
)

type Address struct {
	Name    string
	Address string
}

func (a Address) String() string {
	if len(a.Name) == 0 {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

type Part struct {
	ContentType string
	Size        int64
	Filename    string
}

// Message is a read-only view of the metadata of one message. Zero dates are
// missing dates.
type Message struct {
	Uid    uint32
	Folder Folder

	From []Address
	To   []Address
	Cc   []Address
	Bcc  []Address

	Subject   string
	MessageID string

	SentDate     time.Time
	ReceivedDate time.Time

	Size  int64
	Flags []Flag
	Parts []Part
}

func (m *Message) HasFlag(flag Flag) bool {
	for _, f := range m.Flags {
		if strings.EqualFold(string(f), string(flag)) {
			return true
		}
	}
	return false
}

func (m *Message) Recipients(t RecipientType) []Address {
	switch t {
	case To:
		return m.To
	case Cc:
		return m.Cc
	case Bcc:
		return m.Bcc
	}
	return nil
}

// EffectiveDate is the sent date, or the received date if the message carries
// none. Both may be missing.
func (m *Message) EffectiveDate() time.Time {
	if !m.SentDate.IsZero() {
		return m.SentDate
	}
	return m.ReceivedDate
}

func (m *Message) SetFlag(flag Flag, value bool) error {
	return m.Folder.SetFlags([]*Message{m}, flag, value)
}

// WithFlag returns the flag list with flag set or cleared.
func WithFlag(flags []Flag, flag Flag, value bool) []Flag {
	result := make([]Flag, 0, len(flags)+1)
	for _, f := range flags {
		if !strings.EqualFold(string(f), string(flag)) {
			result = append(result, f)
		}
	}
	if value {
		result = append(result, flag)
	}
	return result
}
