// SPDX-License-Identifier: GPL-3.0-or-later

// Package predicate implements the message filter algebra. A Predicate is an
// immutable tree of leaf criteria joined with And and Or.
package predicate

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/mail"

	gomail "github.com/emersion/go-message/mail"
)

type Predicate interface {
	domain.Matcher
	fmt.Stringer

	isPredicate()
}

type SenderEquals struct {
	Address string
}

type SenderContains struct {
	Substring string
}

type RecipientIn struct {
	Type    domain.RecipientType
	Address string
}

type SubjectEquals struct {
	Subject string
}

type MimePartTypePresent struct {
	MimeType string
}

type SentOnOrAfter struct {
	Time time.Time
}

type SentOnOrBefore struct {
	Time time.Time
}

type FlagIsSet struct {
	Flag domain.Flag
}

type FlagIsClear struct {
	Flag domain.Flag
}

type SizeGreaterThan struct {
	Size int64
}

type MessageIdEquals struct {
	MessageID string
}

type AndPredicate struct {
	Left, Right Predicate
}

type OrPredicate struct {
	Left, Right Predicate
}

func NewSenderEquals(address string) (Predicate, error) {
	parsed, err := parseAddress("sender", address)
	if err != nil {
		return nil, err
	}
	return SenderEquals{Address: parsed}, nil
}

func NewSenderContains(substring string) (Predicate, error) {
	if len(strings.TrimSpace(substring)) == 0 {
		return nil, &domain.PredicateConstructionError{Criterion: "senderlike", Value: substring}
	}
	return SenderContains{Substring: substring}, nil
}

func NewRecipientIn(t domain.RecipientType, address string) (Predicate, error) {
	parsed, err := parseAddress("recipient", address)
	if err != nil {
		return nil, err
	}
	return RecipientIn{Type: t, Address: parsed}, nil
}

func NewMimePartTypePresent(mimeType string) (Predicate, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.Contains(mediaType, "/") {
		return nil, &domain.PredicateConstructionError{Criterion: "mimetype", Value: mimeType, Err: err}
	}
	return MimePartTypePresent{MimeType: mediaType}, nil
}

func NewSizeGreaterThan(size int64) (Predicate, error) {
	if size < 0 {
		return nil, &domain.PredicateConstructionError{Criterion: "largerthan", Value: fmt.Sprint(size)}
	}
	return SizeGreaterThan{Size: size}, nil
}

func NewMessageIdEquals(id string) (Predicate, error) {
	id = mail.NormalizeMessageID(id)
	if len(id) == 0 {
		return nil, &domain.PredicateConstructionError{Criterion: "messageid", Value: id}
	}
	return MessageIdEquals{MessageID: id}, nil
}

// And joins predicates left to right. A nil operand is skipped.
func And(predicates ...Predicate) Predicate {
	return fold(predicates, func(l, r Predicate) Predicate { return AndPredicate{Left: l, Right: r} })
}

// Or joins predicates left to right. A nil operand is skipped.
func Or(predicates ...Predicate) Predicate {
	return fold(predicates, func(l, r Predicate) Predicate { return OrPredicate{Left: l, Right: r} })
}

func fold(predicates []Predicate, join func(l, r Predicate) Predicate) Predicate {
	var result Predicate
	for _, p := range predicates {
		if p == nil {
			continue
		}
		if result == nil {
			result = p
		} else {
			result = join(result, p)
		}
	}
	return result
}

func (p SenderEquals) Match(m *domain.Message) bool {
	for _, a := range m.From {
		if strings.EqualFold(a.Address, p.Address) {
			return true
		}
	}
	return false
}

func (p SenderContains) Match(m *domain.Message) bool {
	needle := strings.ToLower(p.Substring)
	for _, a := range m.From {
		if strings.Contains(strings.ToLower(a.String()), needle) {
			return true
		}
	}
	return false
}

func (p RecipientIn) Match(m *domain.Message) bool {
	for _, a := range m.Recipients(p.Type) {
		if strings.EqualFold(a.Address, p.Address) {
			return true
		}
	}
	return false
}

func (p SubjectEquals) Match(m *domain.Message) bool {
	if len(m.Subject) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(m.Subject), strings.TrimSpace(p.Subject))
}

func (p MimePartTypePresent) Match(m *domain.Message) bool {
	for _, part := range m.Parts {
		if strings.EqualFold(part.ContentType, p.MimeType) {
			return true
		}
	}
	return false
}

func (p SentOnOrAfter) Match(m *domain.Message) bool {
	if m.SentDate.IsZero() {
		return false
	}
	return !m.SentDate.Before(p.Time)
}

func (p SentOnOrBefore) Match(m *domain.Message) bool {
	if m.SentDate.IsZero() {
		return false
	}
	return !m.SentDate.After(p.Time)
}

func (p FlagIsSet) Match(m *domain.Message) bool {
	return m.HasFlag(p.Flag)
}

func (p FlagIsClear) Match(m *domain.Message) bool {
	return !m.HasFlag(p.Flag)
}

func (p SizeGreaterThan) Match(m *domain.Message) bool {
	return m.Size > p.Size
}

func (p MessageIdEquals) Match(m *domain.Message) bool {
	if len(m.MessageID) == 0 {
		return false
	}
	return mail.NormalizeMessageID(m.MessageID) == p.MessageID
}

func (p AndPredicate) Match(m *domain.Message) bool {
	return p.Left.Match(m) && p.Right.Match(m)
}

func (p OrPredicate) Match(m *domain.Message) bool {
	return p.Left.Match(m) || p.Right.Match(m)
}

func (p SenderEquals) String() string        { return fmt.Sprintf("sender=%s", p.Address) }
func (p SenderContains) String() string      { return fmt.Sprintf("sender~%s", p.Substring) }
func (p RecipientIn) String() string         { return fmt.Sprintf("%s=%s", strings.ToLower(string(p.Type)), p.Address) }
func (p SubjectEquals) String() string       { return fmt.Sprintf("subject=%q", p.Subject) }
func (p MimePartTypePresent) String() string { return fmt.Sprintf("mimetype=%s", p.MimeType) }
func (p SentOnOrAfter) String() string       { return fmt.Sprintf("sent>=%s", p.Time.Format(time.RFC3339)) }
func (p SentOnOrBefore) String() string      { return fmt.Sprintf("sent<=%s", p.Time.Format(time.RFC3339)) }
func (p FlagIsSet) String() string           { return fmt.Sprintf("flag+%s", p.Flag) }
func (p FlagIsClear) String() string         { return fmt.Sprintf("flag-%s", p.Flag) }
func (p SizeGreaterThan) String() string     { return fmt.Sprintf("size>%d", p.Size) }
func (p MessageIdEquals) String() string     { return fmt.Sprintf("messageid=%s", p.MessageID) }
func (p AndPredicate) String() string        { return fmt.Sprintf("(%s AND %s)", p.Left, p.Right) }
func (p OrPredicate) String() string         { return fmt.Sprintf("(%s OR %s)", p.Left, p.Right) }

func (SenderEquals) isPredicate()        {}
func (SenderContains) isPredicate()      {}
func (RecipientIn) isPredicate()         {}
func (SubjectEquals) isPredicate()       {}
func (MimePartTypePresent) isPredicate() {}
func (SentOnOrAfter) isPredicate()       {}
func (SentOnOrBefore) isPredicate()      {}
func (FlagIsSet) isPredicate()           {}
func (FlagIsClear) isPredicate()         {}
func (SizeGreaterThan) isPredicate()     {}
func (MessageIdEquals) isPredicate()     {}
func (AndPredicate) isPredicate()        {}
func (OrPredicate) isPredicate()         {}

func parseAddress(criterion, address string) (string, error) {
	parsed, err := gomail.ParseAddress(address)
	if err != nil {
		return "", &domain.PredicateConstructionError{Criterion: criterion, Value: address, Err: err}
	}
	return parsed.Address, nil
}
