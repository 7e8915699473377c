// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

// FolderType is a bitmask of the capabilities a folder has.
type FolderType int

const (
	HoldsMessages FolderType = 1 << iota
	HoldsFolders
)

func (t FolderType) HoldsMessages() bool {
	return t&HoldsMessages != 0
}

func (t FolderType) HoldsFolders() bool {
	return t&HoldsFolders != 0
}

func (t FolderType) String() string {
	switch {
	case t.HoldsMessages() && t.HoldsFolders():
		return "messages+folders"
	case t.HoldsMessages():
		return "messages"
	case t.HoldsFolders():
		return "folders"
	}
	return "none"
}

type FolderState int

const (
	Closed FolderState = iota
	OpenRead
	OpenWrite
)

func (s FolderState) String() string {
	switch s {
	case OpenRead:
		return "open-read"
	case OpenWrite:
		return "open-write"
	}
	return "closed"
}

type OpenMode int

const (
	ReadOnly OpenMode = iota
	ReadWrite
)

// State returns the state a folder is in after being opened with this mode.
func (m OpenMode) State() FolderState {
	if m == ReadWrite {
		return OpenWrite
	}
	return OpenRead
}

// Matcher decides whether a message is part of a search result.
type Matcher interface {
	Match(m *Message) bool
}

type MailStore interface {
	DefaultFolder() (Folder, error)
	Folder(name string) (Folder, error)
	Close() error
}

type Folder interface {
	FullName() string
	Name() string
	Separator() rune
	Type() FolderType
	State() FolderState
	// Parent is nil for the root of the store. It is a lookup, the folder does
	// not own its parent.
	Parent() (Folder, error)
	Store() MailStore

	Exists() (bool, error)
	Create(t FolderType) error
	Open(mode OpenMode) error
	Close(expunge bool) error
	// List returns the children in the order the store lists them. The folder
	// must be closed.
	List() ([]Folder, error)

	MessageCount() (int, error)
	Search(m Matcher) ([]*Message, error)
	CopyMessages(msgs []*Message, dest Folder) error
	SetFlags(msgs []*Message, flag Flag, value bool) error
}

// HeaderFetcher is implemented by folders that can return the raw header
// fields of a message.
type HeaderFetcher interface {
	Headers(msg *Message) ([]HeaderField, error)
}

type HeaderField struct {
	Key   string
	Value string
}

type RawMessage struct {
	Flags []Flag
	Date  time.Time
	Body  []byte
}

// Appender is implemented by folders that accept messages from another store.
type Appender interface {
	AppendMessages(msgs []*RawMessage) error
}

// RawFetcher is implemented by folders that can stream the full content of
// their messages, used when copying between stores.
type RawFetcher interface {
	FetchRaw(msgs []*Message, fn func(m *Message, raw *RawMessage) error) error
}
