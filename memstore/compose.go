// SPDX-License-Identifier: GPL-3.0-or-later
package memstore

import (
	"bytes"
	"fmt"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

type Attachment struct {
	ContentType string
	Filename    string
	Content     []byte
}

// Draft describes a message to be rendered by Compose.
type Draft struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	MessageID   string
	Date        time.Time
	Body        string
	Attachments []Attachment
}

// Compose renders a draft as RFC 5322 bytes.
func Compose(d Draft) ([]byte, error) {
	var h gomail.Header
	if len(d.From) > 0 {
		from, err := gomail.ParseAddress(d.From)
		if err != nil {
			return nil, fmt.Errorf("could not parse from address: %w", err)
		}
		h.SetAddressList("From", []*gomail.Address{from})
	}
	for key, list := range map[string][]string{"To": d.To, "Cc": d.Cc} {
		if len(list) == 0 {
			continue
		}
		addresses := []*gomail.Address{}
		for _, a := range list {
			parsed, err := gomail.ParseAddress(a)
			if err != nil {
				return nil, fmt.Errorf("could not parse %s address: %w", key, err)
			}
			addresses = append(addresses, parsed)
		}
		h.SetAddressList(key, addresses)
	}
	h.SetSubject(d.Subject)
	if !d.Date.IsZero() {
		h.SetDate(d.Date)
	}
	if len(d.MessageID) > 0 {
		h.SetMsgIDList("Message-Id", []string{d.MessageID})
	}

	var buf bytes.Buffer
	if len(d.Attachments) == 0 {
		h.Set("Content-Type", "text/plain; charset=utf-8")
		w, err := gomail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("could not create writer: %w", err)
		}
		if _, err := w.Write([]byte(d.Body)); err != nil {
			return nil, fmt.Errorf("could not write body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("could not close writer: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("could not create writer: %w", err)
	}

	var ih gomail.InlineHeader
	ih.Set("Content-Type", "text/plain; charset=utf-8")
	tw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("could not create inline part: %w", err)
	}
	if _, err := tw.Write([]byte(d.Body)); err != nil {
		return nil, fmt.Errorf("could not write body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("could not close inline part: %w", err)
	}

	for _, a := range d.Attachments {
		var ah gomail.AttachmentHeader
		ah.Set("Content-Type", a.ContentType)
		ah.SetFilename(a.Filename)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("could not create attachment: %w", err)
		}
		if _, err := aw.Write(a.Content); err != nil {
			return nil, fmt.Errorf("could not write attachment: %w", err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("could not close attachment: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// MustCompose is Compose for fixtures, it panics on error.
func MustCompose(d Draft) []byte {
	raw, err := Compose(d)
	if err != nil {
		panic(err)
	}
	return raw
}
