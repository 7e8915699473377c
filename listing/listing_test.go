// SPDX-License-Identifier: GPL-3.0-or-later
package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/memstore"
	"github.com/stretchr/testify/assert"
)

// setupStore returns a tree with one folder that only holds folders and the
// combined size of the INBOX messages that are not deleted.
func setupStore(t *testing.T) (*memstore.Store, int) {
	log.InitLogging("error")

	store := memstore.New('/')
	assert.NoError(t, store.AddFolder("INBOX", domain.HoldsMessages|domain.HoldsFolders))
	assert.NoError(t, store.AddFolder("INBOX/Archive", domain.HoldsMessages))
	assert.NoError(t, store.AddFolder("Lists", domain.HoldsFolders))
	assert.NoError(t, store.AddFolder("Lists/Go", domain.HoldsMessages))

	size := 0
	for i, flags := range [][]domain.Flag{
		{},
		{domain.SeenFlag},
		{domain.SeenFlag, domain.DeletedFlag},
	} {
		raw := memstore.MustCompose(memstore.Draft{
			From:    "a@x.com",
			Subject: fmt.Sprintf("Message %d", i),
			Date:    time.Date(2021, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
		assert.NoError(t, store.AddMessage("INBOX", raw, time.Now(), flags...))
		if i < 2 {
			size += len(raw)
		}
	}
	return store, size
}

func root(t *testing.T, store *memstore.Store) domain.Folder {
	f, err := store.DefaultFolder()
	assert.NoError(t, err)
	return f
}

func TestNewLister(t *testing.T) {
	log.InitLogging("error")
	tests := []struct {
		name string
		cfgs []ConfigFunc
		err  string
	}{
		{"ok", []ConfigFunc{Counters(), Sizes()}, ""},
		{"output", []ConfigFunc{Output(nil)}, "error applying configuration: Output cannot be nil"},
		{"depth", []ConfigFunc{MaxDepth(0)}, "error applying configuration: MaxDepth must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lister, err := NewLister(tc.cfgs...)
			if len(tc.err) == 0 {
				assert.NoError(t, err)
				assert.NotNil(t, lister)
			} else {
				assert.EqualError(t, err, tc.err)
				assert.Nil(t, lister)
			}
		})
	}
}

func TestListFolders(t *testing.T) {
	store, _ := setupStore(t)
	out := &bytes.Buffer{}

	lister, err := NewLister(Output(out))
	assert.NoError(t, err)

	assert.NoError(t, lister.ListFolders(context.Background(), root(t, store)))
	assert.Equal(t, "# Default folder is \"\"\n"+
		"# Folder delimiter is /\n"+
		"INBOX\n"+
		"INBOX/Archive\n"+
		"Lists/Go\n", out.String())
	assert.Equal(t, 3, len(store.Messages("INBOX")))
}

func TestListFoldersDetailed(t *testing.T) {
	store, size := setupStore(t)
	out := &bytes.Buffer{}

	lister, err := NewLister(Output(out), Counters(), Sizes())
	assert.NoError(t, err)

	inbox, err := store.Folder("INBOX")
	assert.NoError(t, err)
	assert.NoError(t, lister.ListFolders(context.Background(), inbox))
	assert.Equal(t, "# Default folder is \"\"\n"+
		"# Folder delimiter is /\n"+
		fmt.Sprintf("INBOX\t3\t0\t1\t1\t2\t%d\n", size)+
		"INBOX/Archive\t0\t0\t0\t0\t0\t0\n", out.String())
}

func TestListFoldersError(t *testing.T) {
	store, _ := setupStore(t)
	store.FailOpen("INBOX/Archive", errors.New("boom"))
	out := &bytes.Buffer{}

	lister, err := NewLister(Output(out), Counters())
	assert.NoError(t, err)

	err = lister.ListFolders(context.Background(), root(t, store))
	assert.Error(t, err)
	assert.Contains(t, out.String(), "ERROR whilst processing INBOX/Archive : could not open folder \"INBOX/Archive\": boom\n")
	assert.Contains(t, out.String(), "Lists/Go\t0\t0\t0\t0\n")
}

func TestListFoldersCancelled(t *testing.T) {
	store, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lister, err := NewLister(Output(&bytes.Buffer{}))
	assert.NoError(t, err)
	assert.ErrorIs(t, lister.ListFolders(ctx, root(t, store)), context.Canceled)
}

func TestListFolderParents(t *testing.T) {
	store, _ := setupStore(t)
	out := &bytes.Buffer{}

	lister, err := NewLister(Output(out))
	assert.NoError(t, err)

	f, err := store.Folder("Lists/Go")
	assert.NoError(t, err)
	assert.NoError(t, lister.ListFolderParents(f))
	assert.Equal(t, "'Lists/Go' [HOLDS_MESSAGES]\n"+
		"'Lists' [HOLDS_FOLDERS]\n"+
		"'' [HOLDS_FOLDERS] [IS ROOT]\n", out.String())
}
