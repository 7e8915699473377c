// SPDX-License-Identifier: GPL-3.0-or-later
package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/domain/mocks"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/memstore"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func testMessage() *domain.Message {
	return &domain.Message{
		Uid:       7,
		From:      []domain.Address{{Name: "Alice", Address: "a@x.com"}},
		To:        []domain.Address{{Address: "b@y.org"}, {Name: "Carol", Address: "c@y.org"}},
		Cc:        []domain.Address{{Address: "d@y.org"}},
		Subject:   "Report",
		MessageID: "1@x.com",
		SentDate:  time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
		Size:      2048,
		Flags:     []domain.Flag{domain.SeenFlag, domain.AnsweredFlag},
		Parts: []domain.Part{
			{ContentType: "text/plain", Size: 12},
			{ContentType: "application/pdf", Size: 1024, Filename: "report.pdf"},
		},
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		err      string
	}{
		{"simple", KindSimple, ""},
		{"Tabular", KindTabular, ""},
		{"HEADERS", KindHeaders, ""},
		{"database", KindDatabase, ""},
		{"fancy", "", `unknown handler "fancy"`},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			k, err := ParseKind(tc.input)
			if len(tc.err) > 0 {
				assert.EqualError(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, k)
		})
	}
}

func TestNew(t *testing.T) {
	out := &bytes.Buffer{}

	h, err := New(KindTabular, out, nil)
	assert.NoError(t, err)
	assert.IsType(t, &Tabular{}, h)

	_, err = New(KindDatabase, out, nil)
	assert.EqualError(t, err, "database handler requires a database")

	_, err = New(Kind("other"), out, nil)
	assert.Error(t, err)
}

func TestSimple(t *testing.T) {
	out := &bytes.Buffer{}
	err := NewSimple(out).HandleMessage(context.Background(), testMessage())
	assert.NoError(t, err)

	expected := "From:    Alice <a@x.com>\n" +
		"To:      b@y.org, Carol <c@y.org>\n" +
		"Date:    2021-03-04 05:06:07\n" +
		"Subject: Report\n" +
		"MsgID:   <1@x.com>\n" +
		"Flags:   ANSWERED | SEEN\n" +
		"Size:    2048 (2.0 kB)\n" +
		"Parts:   2\n" +
		"\tPart 0: Content-Type=text/plain; Length=12\n" +
		"\tPart 1: Content-Type=application/pdf; Length=1024\n" +
		"\n"
	assert.Equal(t, expected, out.String())
}

func TestSimpleDates(t *testing.T) {
	received := time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		msg      *domain.Message
		expected string
	}{
		{"received", &domain.Message{ReceivedDate: received}, "Date:    2021-03-05 00:00:00 [Received]\n"},
		{"none", &domain.Message{}, "Date:    [NO DATES]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			assert.NoError(t, NewSimple(out).HandleMessage(context.Background(), tc.msg))
			assert.Contains(t, out.String(), tc.expected)
			assert.Contains(t, out.String(), "From:    NULL\n")
		})
	}
}

func TestTabular(t *testing.T) {
	out := &bytes.Buffer{}
	assert.NoError(t, NewTabular(out).HandleMessage(context.Background(), testMessage()))
	assert.Equal(t, "\ta@x.com\tb@y.org\t2021-03-04 05:06:07\t2048\tReport\t<1@x.com>\t0:text/plain:12:\t1:application/pdf:1024:report.pdf\n", out.String())

	out.Reset()
	assert.NoError(t, NewTabular(out).HandleMessage(context.Background(), &domain.Message{Subject: "x"}))
	assert.Equal(t, "\tNULL\tNULL\tNULL\t0\tx\tNULL\n", out.String())
}

func TestHeaders(t *testing.T) {
	log.InitLogging("error")
	store := memstore.New('/')
	assert.NoError(t, store.AddFolder("INBOX", domain.HoldsMessages))
	raw := memstore.MustCompose(memstore.Draft{From: "a@x.com", To: []string{"b@y.org"}, Subject: "Report"})
	assert.NoError(t, store.AddMessage("INBOX", raw, time.Now()))

	f, err := store.Folder("INBOX")
	assert.NoError(t, err)
	assert.NoError(t, f.Open(domain.ReadOnly))
	msgs := store.Messages("INBOX")
	assert.Len(t, msgs, 1)

	out := &bytes.Buffer{}
	assert.NoError(t, NewHeaders(out).HandleMessage(context.Background(), msgs[0]))
	assert.True(t, strings.HasPrefix(out.String(), strings.Repeat("=", 80)+"\nHEADERS FOR MESSAGE 1 in folder INBOX\n"))
	assert.Contains(t, out.String(), "NAME:  Subject\nVALUE: Report\n\n")

	// headers are only available while the folder is open
	assert.NoError(t, f.Close(false))
	assert.Error(t, NewHeaders(out).HandleMessage(context.Background(), msgs[0]))

	assert.EqualError(t, NewHeaders(out).HandleMessage(context.Background(), &domain.Message{}), `folder "" cannot return headers`)
}

func TestDatabase(t *testing.T) {
	log.InitLogging("error")
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	persistence := mocks.NewMockPersistence(ctrl)
	cache := domain.NewIDCache()

	msg := testMessage()
	msg.Parts[0].Size = -1

	persistence.EXPECT().
		SaveMessage(gomock.Eq(cache), gomock.Eq(domain.SaveMessage{
			From:     "a@x.com",
			SentDate: msg.SentDate,
			Subject:  "Report",
			Size:     2048,
			Recipients: []domain.SaveRecipient{
				{Type: domain.To, Address: "b@y.org"},
				{Type: domain.To, Address: "c@y.org"},
				{Type: domain.Cc, Address: "d@y.org"},
			},
			Attachments: []domain.SaveAttachment{
				{MimeType: "text/plain", Size: 0},
				{MimeType: "application/pdf", Filename: "report.pdf", Size: 1024},
			},
		})).
		Return(int64(1), nil)

	assert.NoError(t, NewDatabase(persistence, cache).HandleMessage(context.Background(), msg))

	persistence.EXPECT().
		SaveMessage(gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("disk full"))

	err := NewDatabase(persistence, cache).HandleMessage(context.Background(), &domain.Message{Subject: "x"})
	assert.EqualError(t, err, `could not save message "x": disk full`)
}
