// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"strings"
	"time"
	"unicode"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/predicate"

	"github.com/emersion/go-imap"
)

const day = 24 * time.Hour

// Translate turns a predicate into search criteria that match at least every
// message the predicate matches. The server result still has to be filtered
// with Match.
func Translate(p predicate.Predicate) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if p != nil {
		narrow(criteria, p)
	}
	return criteria
}

// narrow adds the constraints of p to c and reports whether there were any.
func narrow(c *imap.SearchCriteria, p predicate.Predicate) bool {
	switch p := p.(type) {
	case predicate.SenderEquals:
		c.Header.Add("From", p.Address)
	case predicate.SenderContains:
		if !rawSubstring(p.Substring) {
			return false
		}
		c.Header.Add("From", p.Substring)
	case predicate.RecipientIn:
		switch p.Type {
		case domain.To:
			c.Header.Add("To", p.Address)
		case domain.Cc:
			c.Header.Add("Cc", p.Address)
		case domain.Bcc:
			c.Header.Add("Bcc", p.Address)
		default:
			return false
		}
	case predicate.SubjectEquals:
		subject := strings.TrimSpace(p.Subject)
		if len(subject) == 0 {
			return false
		}
		c.Header.Add("Subject", subject)
	case predicate.MessageIdEquals:
		c.Header.Add("Message-Id", p.MessageID)
	case predicate.SentOnOrAfter:
		// SENTSINCE compares dates in the zone of the Date header, so the
		// window is widened by a day on each side
		since := truncateDay(p.Time).Add(-day)
		if c.SentSince.IsZero() || since.After(c.SentSince) {
			c.SentSince = since
		}
	case predicate.SentOnOrBefore:
		before := truncateDay(p.Time).Add(2 * day)
		if c.SentBefore.IsZero() || before.Before(c.SentBefore) {
			c.SentBefore = before
		}
	case predicate.FlagIsSet:
		c.WithFlags = append(c.WithFlags, string(p.Flag))
	case predicate.FlagIsClear:
		c.WithoutFlags = append(c.WithoutFlags, string(p.Flag))
	case predicate.SizeGreaterThan:
		if uint32(p.Size) > c.Larger && p.Size <= int64(^uint32(0)) {
			c.Larger = uint32(p.Size)
		}
	case predicate.AndPredicate:
		left := narrow(c, p.Left)
		right := narrow(c, p.Right)
		return left || right
	case predicate.OrPredicate:
		left, right := imap.NewSearchCriteria(), imap.NewSearchCriteria()
		// an unconstrained side matches everything, and so does the OR
		if !narrow(left, p.Left) || !narrow(right, p.Right) {
			return false
		}
		c.Or = append(c.Or, [2]*imap.SearchCriteria{left, right})
	default:
		// MimePartTypePresent has no server side equivalent
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// rawSubstring reports whether s is found in the raw From header whenever it
// is found in the formatted sender. The raw header may quote or encode the
// name, which moves the characters around s.
func rawSubstring(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || strings.ContainsRune("<>\",\\", r) {
			return false
		}
	}
	return true
}
