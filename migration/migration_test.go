// SPDX-License-Identifier: GPL-3.0-or-later
package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/memstore"
	"github.com/stretchr/testify/assert"
)

func addMessages(t *testing.T, s *memstore.Store, folder string, n int, flags ...domain.Flag) {
	for i := 0; i < n; i++ {
		raw := memstore.MustCompose(memstore.Draft{
			From:    "a@x.com",
			To:      []string{"b@y.org"},
			Subject: fmt.Sprintf("%s %d", folder, i),
			Date:    time.Date(2021, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
		assert.NoError(t, s.AddMessage(folder, raw, time.Date(2021, 1, i+1, 0, 0, 0, 0, time.UTC), flags...))
	}
}

func folder(t *testing.T, s *memstore.Store, name string) domain.Folder {
	f, err := s.Folder(name)
	assert.NoError(t, err)
	return f
}

func subjects(msgs []*domain.Message) []string {
	result := []string{}
	for _, m := range msgs {
		result = append(result, m.Subject)
	}
	return result
}

func TestDestinationName(t *testing.T) {
	tests := []struct {
		parent   string
		expected string
	}{
		{"", "Archive"},
		{"Dest", "Dest.Archive"},
		{"Dest.Sub", "Dest.Sub.Archive"},
	}
	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, DestinationName(tc.parent, '.', "Archive"))
		})
	}
}

func TestNewMigrator(t *testing.T) {
	log.InitLogging("error")

	m, err := NewMigrator(nil, nil, Output(nil))
	assert.Nil(t, m)
	assert.EqualError(t, err, "error applying configuration: Output cannot be nil")

	m, err = NewMigrator(nil, nil, MaxDepth(0))
	assert.Nil(t, m)
	assert.EqualError(t, err, "error applying configuration: MaxDepth must be positive")
}

func TestScenario(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	assert.NoError(t, source.AddFolder("INBOX", domain.HoldsMessages|domain.HoldsFolders))
	assert.NoError(t, source.AddFolder("INBOX/Archive", domain.HoldsMessages))
	addMessages(t, source, "INBOX", 3)
	addMessages(t, source, "INBOX", 1, domain.DeletedFlag)
	addMessages(t, source, "INBOX/Archive", 2)

	destination := memstore.New('.')
	out := &bytes.Buffer{}

	m, err := NewMigrator(folder(t, source, "INBOX"), folder(t, destination, "Dest"), Output(out))
	assert.NoError(t, err)

	summary, err := m.Run(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, summary.Err())
	assert.Equal(t, 1, summary.Folders)
	assert.Equal(t, 5, summary.Messages)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 5, summary.Copied)

	expected := regexp.MustCompile(`^STAGE 1: COUNT ALL SOURCE FOLDERS AND MESSAGES
\tINBOX : 3 messages
\tINBOX/Archive : 2 messages

TOTAL : 5 messages in 1 folder

STAGE 2: COPY ALL SOURCE FOLDERS AND MESSAGES
\tCopying 3 messages from INBOX to Dest \[\d+\.\d seconds\]
\tCopying 2 messages from INBOX/Archive to Dest.Archive \[\d+\.\d seconds\]
$`)
	assert.Regexp(t, expected, out.String())

	assert.Equal(t, []string{"Dest", "Dest.Archive"}, destination.FolderNames())
	assert.Equal(t, []string{"INBOX 0", "INBOX 1", "INBOX 2"}, subjects(destination.Messages("Dest")))
	assert.Len(t, destination.Messages("Dest.Archive"), 2)
	assert.Equal(t, domain.HoldsMessages|domain.HoldsFolders, folder(t, destination, "Dest").Type())
	assert.Equal(t, domain.HoldsMessages, folder(t, destination, "Dest.Archive").Type())
}

func TestNotIdempotent(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	assert.NoError(t, source.AddFolder("A", domain.HoldsMessages))
	addMessages(t, source, "A", 3)
	destination := memstore.New('/')

	sourceRoot, err := source.DefaultFolder()
	assert.NoError(t, err)
	destinationRoot, err := destination.DefaultFolder()
	assert.NoError(t, err)

	for _, expected := range []int{3, 6} {
		m, err := NewMigrator(sourceRoot, destinationRoot, Output(&bytes.Buffer{}))
		assert.NoError(t, err)
		_, err = m.Run(context.Background())
		assert.NoError(t, err)
		assert.Len(t, destination.Messages("A"), expected)
	}
	assert.Len(t, source.Messages("A"), 3)
}

func TestMirrorTree(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	for _, f := range []struct {
		name string
		typ  domain.FolderType
		n    int
	}{
		{"Work", domain.HoldsFolders, 0},
		{"Work/2020", domain.HoldsMessages, 2},
		{"Work/2021", domain.HoldsMessages | domain.HoldsFolders, 1},
		{"Work/2021/Q1", domain.HoldsMessages, 4},
		{"Private", domain.HoldsMessages, 0},
	} {
		assert.NoError(t, source.AddFolder(f.name, f.typ))
		addMessages(t, source, f.name, f.n)
	}
	addMessages(t, source, "Work/2021/Q1", 2, domain.DeletedFlag)

	destination := memstore.New('.')
	assert.NoError(t, destination.AddFolder("Backup", domain.HoldsFolders))
	sourceRoot, err := source.DefaultFolder()
	assert.NoError(t, err)

	m, err := NewMigrator(sourceRoot, folder(t, destination, "Backup"), Output(&bytes.Buffer{}))
	assert.NoError(t, err)
	summary, err := m.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, summary.Folders)
	assert.Equal(t, 7, summary.Messages)

	mapped := map[string]string{
		"Work":         "Backup.Work",
		"Work/2020":    "Backup.Work.2020",
		"Work/2021":    "Backup.Work.2021",
		"Work/2021/Q1": "Backup.Work.2021.Q1",
		"Private":      "Backup.Private",
	}
	for src, dst := range mapped {
		exists, err := folder(t, destination, dst).Exists()
		assert.NoError(t, err)
		assert.True(t, exists, dst)

		notDeleted := 0
		for _, msg := range source.Messages(src) {
			if !msg.HasFlag(domain.DeletedFlag) {
				notDeleted++
			}
		}
		assert.Len(t, destination.Messages(dst), notDeleted, dst)
		assert.Equal(t, folder(t, source, src).Type(), folder(t, destination, dst).Type(), dst)
	}
}

func TestCopyFailureContinues(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	assert.NoError(t, source.AddFolder("INBOX", domain.HoldsMessages|domain.HoldsFolders))
	assert.NoError(t, source.AddFolder("INBOX/Archive", domain.HoldsMessages))
	addMessages(t, source, "INBOX", 3)
	addMessages(t, source, "INBOX/Archive", 2)
	source.FailCopy("INBOX", errors.New("quota exceeded"))

	destination := memstore.New('/')
	m, err := NewMigrator(folder(t, source, "INBOX"), folder(t, destination, "Dest"), Output(&bytes.Buffer{}))
	assert.NoError(t, err)

	summary, err := m.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Copied)
	assert.Equal(t, 1, summary.ErrorCount())

	var partial *domain.PartialCopyError
	assert.True(t, errors.As(summary.Err(), &partial))
	assert.Equal(t, "INBOX", partial.Source)
	assert.Equal(t, 3, partial.Count)

	assert.Empty(t, destination.Messages("Dest"))
	assert.Len(t, destination.Messages("Dest/Archive"), 2)
}

func TestCountOnly(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	assert.NoError(t, source.AddFolder("INBOX", domain.HoldsMessages))
	addMessages(t, source, "INBOX", 2)
	destination := memstore.New('/')
	before := destination.Mutations()

	sourceRoot, err := source.DefaultFolder()
	assert.NoError(t, err)
	out := &bytes.Buffer{}
	m, err := NewMigrator(sourceRoot, folder(t, destination, "Dest"), Output(out), CountOnly())
	assert.NoError(t, err)

	summary, err := m.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, before, destination.Mutations())
	assert.NotContains(t, out.String(), "STAGE 2")
}

func TestCancelled(t *testing.T) {
	log.InitLogging("error")
	source := memstore.New('/')
	assert.NoError(t, source.AddFolder("INBOX", domain.HoldsMessages))
	destination := memstore.New('/')

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := NewMigrator(folder(t, source, "INBOX"), folder(t, destination, "Dest"), Output(&bytes.Buffer{}))
	assert.NoError(t, err)
	_, err = m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, destination.FolderNames())
}
