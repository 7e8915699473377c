// SPDX-License-Identifier: GPL-3.0-or-later
package predicate

import (
	"strconv"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
)

// Builder ANDs criteria in the order they are added. The first construction
// error is kept and returned by Build, later criteria are ignored.
type Builder struct {
	predicates     []Predicate
	includeDeleted bool
	err            error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(p Predicate, err error) *Builder {
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = err
		return b
	}
	b.predicates = append(b.predicates, p)
	return b
}

func (b *Builder) Sender(address string) *Builder {
	return b.add(NewSenderEquals(address))
}

func (b *Builder) SenderLike(substring string) *Builder {
	return b.add(NewSenderContains(substring))
}

// Recipient matches the address in either To or Cc.
func (b *Builder) Recipient(address string) *Builder {
	to, err := NewRecipientIn(domain.To, address)
	if err != nil {
		return b.add(nil, err)
	}
	cc, err := NewRecipientIn(domain.Cc, address)
	if err != nil {
		return b.add(nil, err)
	}
	return b.add(Or(to, cc), nil)
}

func (b *Builder) Subject(subject string) *Builder {
	return b.add(SubjectEquals{Subject: subject}, nil)
}

func (b *Builder) MimeType(mimeType string) *Builder {
	return b.add(NewMimePartTypePresent(mimeType))
}

func (b *Builder) After(t time.Time) *Builder {
	return b.add(SentOnOrAfter{Time: t}, nil)
}

func (b *Builder) Before(t time.Time) *Builder {
	return b.add(SentOnOrBefore{Time: t}, nil)
}

// OlderThan matches messages sent at least days before now.
func (b *Builder) OlderThan(days int, now time.Time) *Builder {
	if days < 0 {
		return b.add(nil, &domain.PredicateConstructionError{Criterion: "older", Value: strconv.Itoa(days)})
	}
	return b.Before(now.Add(-time.Duration(days) * 24 * time.Hour))
}

// NewerThan matches messages sent at most days before now.
func (b *Builder) NewerThan(days int, now time.Time) *Builder {
	if days < 0 {
		return b.add(nil, &domain.PredicateConstructionError{Criterion: "newer", Value: strconv.Itoa(days)})
	}
	return b.After(now.Add(-time.Duration(days) * 24 * time.Hour))
}

func (b *Builder) MessageID(id string) *Builder {
	return b.add(NewMessageIdEquals(id))
}

func (b *Builder) Unread() *Builder {
	return b.add(FlagIsClear{Flag: domain.SeenFlag}, nil)
}

func (b *Builder) LargerThan(size int64) *Builder {
	return b.add(NewSizeGreaterThan(size))
}

func (b *Builder) Add(p Predicate) *Builder {
	return b.add(p, nil)
}

// Deleted selects deleted messages instead of the default of excluding them.
func (b *Builder) Deleted() *Builder {
	b.includeDeleted = true
	return b
}

// Build returns the conjunction of all criteria and the deleted state
// criterion.
func (b *Builder) Build() (Predicate, error) {
	if b.err != nil {
		return nil, b.err
	}

	deletedState := Predicate(FlagIsClear{Flag: domain.DeletedFlag})
	if b.includeDeleted {
		deletedState = FlagIsSet{Flag: domain.DeletedFlag}
	}

	return And(append(append([]Predicate{}, b.predicates...), deletedState)...), nil
}

// NotDeleted matches every message without the deleted flag.
func NotDeleted() Predicate {
	return FlagIsClear{Flag: domain.DeletedFlag}
}
