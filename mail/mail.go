// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

var wordDecoder = &mime.WordDecoder{
	CharsetReader: charset.Reader,
}

// DecodeHeader decodes RFC 2047 encoded words. Undecodable input is returned
// as is.
func DecodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func ShortSubject(subject string) string {
	if (len(subject)) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}

// Describe builds a message descriptor from the raw RFC 5322 bytes. Header
// fields that are missing or cannot be parsed are left empty.
func Describe(rawMail []byte) (*domain.Message, error) {
	entity, err := message.Read(bytes.NewReader(rawMail))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}

	header := gomail.Header{Header: entity.Header}
	msg := &domain.Message{
		From:      addressList(header, "From"),
		To:        addressList(header, "To"),
		Cc:        addressList(header, "Cc"),
		Bcc:       addressList(header, "Bcc"),
		Subject:   DecodeHeader(header.Get("Subject")),
		MessageID: NormalizeMessageID(header.Get("Message-Id")),
		Size:      int64(len(rawMail)),
	}

	if date, err := header.Date(); err == nil {
		msg.SentDate = date
	}

	parts, err := partSummary(entity)
	if err != nil {
		return nil, fmt.Errorf("could not read mime parts: %w", err)
	}
	msg.Parts = parts

	return msg, nil
}

// NormalizeMessageID strips whitespace and the angle brackets around a
// Message-Id.
func NormalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	return strings.TrimSuffix(id, ">")
}

// Headers returns the header fields of a raw message.
func Headers(rawMail []byte) ([]domain.HeaderField, error) {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(rawMail)))
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	fields := []domain.HeaderField{}
	for f := h.Fields(); f.Next(); {
		fields = append(fields, domain.HeaderField{Key: f.Key(), Value: f.Value()})
	}
	return fields, nil
}

func addressList(h gomail.Header, key string) []domain.Address {
	list, err := h.AddressList(key)
	if err != nil {
		return nil
	}

	addresses := []domain.Address{}
	for _, a := range list {
		addresses = append(addresses, domain.Address{Name: a.Name, Address: a.Address})
	}
	return addresses
}

// partSummary lists the direct children of a multipart message. Single part
// messages have no parts.
func partSummary(entity *message.Entity) ([]domain.Part, error) {
	mr := entity.MultipartReader()
	if mr == nil {
		return nil, nil
	}

	parts := []domain.Part{}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return nil, err
		}

		contentType, params, _ := p.Header.ContentType()
		_, dispositionParams, _ := p.Header.ContentDisposition()
		filename := dispositionParams["filename"]
		if len(filename) == 0 {
			filename = params["name"]
		}

		size, err := io.Copy(io.Discard, p.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read part: %w", err)
		}

		parts = append(parts, domain.Part{
			ContentType: strings.ToLower(contentType),
			Size:        size,
			Filename:    DecodeHeader(filename),
		})
	}
}
