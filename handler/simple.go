// SPDX-License-Identifier: GPL-3.0-or-later
package handler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"

	"github.com/dustin/go-humanize"
)

// Simple prints a block of the most important headers per message.
type Simple struct {
	out io.Writer
}

func NewSimple(out io.Writer) *Simple {
	return &Simple{out: out}
}

func (s *Simple) HandleMessage(ctx context.Context, m *domain.Message) error {
	var b strings.Builder

	if len(m.From) > 0 {
		fmt.Fprintf(&b, "From:    %s\n", m.From[0])
	} else {
		b.WriteString("From:    NULL\n")
	}

	if len(m.To) > 0 {
		to := []string{}
		for _, a := range m.To {
			to = append(to, a.String())
		}
		fmt.Fprintf(&b, "To:      %s\n", strings.Join(to, ", "))
	}

	switch {
	case !m.SentDate.IsZero():
		fmt.Fprintf(&b, "Date:    %s\n", m.SentDate.Format(dateLayout))
	case !m.ReceivedDate.IsZero():
		fmt.Fprintf(&b, "Date:    %s [Received]\n", m.ReceivedDate.Format(dateLayout))
	default:
		b.WriteString("Date:    [NO DATES]\n")
	}

	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	if len(m.MessageID) > 0 {
		fmt.Fprintf(&b, "MsgID:   <%s>\n", m.MessageID)
	}
	if flags := flagsString(m); len(flags) > 0 {
		fmt.Fprintf(&b, "Flags:   %s\n", flags)
	}
	fmt.Fprintf(&b, "Size:    %d (%s)\n", m.Size, humanize.Bytes(uint64(m.Size)))

	if len(m.Parts) > 0 {
		fmt.Fprintf(&b, "Parts:   %d\n", len(m.Parts))
		for j, p := range m.Parts {
			fmt.Fprintf(&b, "\tPart %d: Content-Type=%s; Length=%d\n", j, p.ContentType, p.Size)
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(s.out, b.String())
	if err != nil {
		return fmt.Errorf("could not write message: %w", err)
	}
	return nil
}

// Tabular prints one tab separated line per message.
type Tabular struct {
	out io.Writer
}

func NewTabular(out io.Writer) *Tabular {
	return &Tabular{out: out}
}

func (t *Tabular) HandleMessage(ctx context.Context, m *domain.Message) error {
	to := "NULL"
	all := append(append(append([]domain.Address{}, m.To...), m.Cc...), m.Bcc...)
	if len(all) > 0 {
		to = all[0].Address
	}

	date := "NULL"
	if !m.SentDate.IsZero() {
		date = m.SentDate.Format(dateLayout)
	}

	msgid := "NULL"
	if len(m.MessageID) > 0 {
		msgid = "<" + m.MessageID + ">"
	}

	fields := []string{
		folderName(m),
		firstAddress(m.From),
		to,
		date,
		fmt.Sprint(m.Size),
		m.Subject,
		msgid,
	}
	for j, p := range m.Parts {
		fields = append(fields, fmt.Sprintf("%d:%s:%d:%s", j, p.ContentType, p.Size, p.Filename))
	}

	_, err := fmt.Fprintln(t.out, strings.Join(fields, "\t"))
	if err != nil {
		return fmt.Errorf("could not write message: %w", err)
	}
	return nil
}

// Headers prints every header field of a message. The folder of the message
// has to implement domain.HeaderFetcher.
type Headers struct {
	out io.Writer
}

func NewHeaders(out io.Writer) *Headers {
	return &Headers{out: out}
}

func (h *Headers) HandleMessage(ctx context.Context, m *domain.Message) error {
	fetcher, ok := m.Folder.(domain.HeaderFetcher)
	if !ok {
		return fmt.Errorf("folder %q cannot return headers", folderName(m))
	}

	fields, err := fetcher.Headers(m)
	if err != nil {
		return fmt.Errorf("could not fetch headers: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "HEADERS FOR MESSAGE %d in folder %s\n", m.Uid, folderName(m))
	for _, f := range fields {
		fmt.Fprintf(&b, "NAME:  %s\nVALUE: %s\n\n", f.Key, f.Value)
	}

	_, err = io.WriteString(h.out, b.String())
	if err != nil {
		return fmt.Errorf("could not write headers: %w", err)
	}
	return nil
}
