// SPDX-License-Identifier: GPL-3.0-or-later
package handler

import (
	"context"
	"fmt"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/mail"

	"github.com/sirupsen/logrus"
)

// Database stores every message with its recipients and attachments.
type Database struct {
	persistence domain.Persistence
	cache       *domain.IDCache

	l *logrus.Logger
}

func NewDatabase(p domain.Persistence, cache *domain.IDCache) *Database {
	return &Database{
		persistence: p,
		cache:       cache,
		l:           log.Logger(log.LOG_HANDLER),
	}
}

func (d *Database) HandleMessage(ctx context.Context, m *domain.Message) error {
	msg := domain.SaveMessage{
		Folder:   folderName(m),
		From:     firstAddress(m.From),
		SentDate: m.SentDate,
		Subject:  m.Subject,
		Size:     m.Size,
	}

	for _, t := range []domain.RecipientType{domain.To, domain.Cc, domain.Bcc} {
		for _, a := range m.Recipients(t) {
			msg.Recipients = append(msg.Recipients, domain.SaveRecipient{Type: t, Address: a.Address})
		}
	}

	for _, p := range m.Parts {
		size := p.Size
		if size < 0 {
			size = 0
		}
		msg.Attachments = append(msg.Attachments, domain.SaveAttachment{
			MimeType: p.ContentType,
			Filename: p.Filename,
			Size:     size,
		})
	}

	id, err := d.persistence.SaveMessage(d.cache, msg)
	if err != nil {
		return fmt.Errorf(`could not save message "%s": %w`, mail.ShortSubject(m.Subject), err)
	}

	d.l.WithFields(logrus.Fields{"id": id, "folder": msg.Folder, "subject": mail.ShortSubject(m.Subject)}).Debug("Saved message")
	return nil
}
