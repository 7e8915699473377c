// SPDX-License-Identifier: GPL-3.0-or-later

// Package memstore is an in-memory mail store. Folders live in an arena; a
// node owns the indices of its children and refers to its parent by index.
package memstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/mail"
)

var (
	ErrStoreClosed    = errors.New("store is closed")
	ErrFolderNotFound = errors.New("folder does not exist")
)

const rootIndex = 0

type node struct {
	fullName string
	typ      domain.FolderType
	exists   bool
	parent   int
	children []int

	state    domain.FolderState
	messages []*storedMessage
	nextUid  uint32
}

type storedMessage struct {
	uid      uint32
	raw      []byte
	date     time.Time
	flags    []domain.Flag
	metadata domain.Message
}

type faults struct {
	open error
	list error
	copy error
}

type Store struct {
	separator rune
	nodes     []*node
	byName    map[string]int
	faults    map[string]*faults
	closed    bool
	mutations int
}

func New(separator rune) *Store {
	root := &node{
		fullName: "",
		typ:      domain.HoldsFolders,
		exists:   true,
		parent:   -1,
		nextUid:  1,
	}
	return &Store{
		separator: separator,
		nodes:     []*node{root},
		byName:    map[string]int{"": rootIndex},
		faults:    map[string]*faults{},
	}
}

func (s *Store) DefaultFolder() (domain.Folder, error) {
	if s.closed {
		return nil, &domain.ConnectionError{Op: "get default folder", Err: ErrStoreClosed}
	}
	return &Folder{store: s, index: rootIndex}, nil
}

func (s *Store) Folder(name string) (domain.Folder, error) {
	if s.closed {
		return nil, &domain.ConnectionError{Op: "get folder", Err: ErrStoreClosed}
	}
	return &Folder{store: s, index: s.lookup(name)}, nil
}

func (s *Store) Close() error {
	if s.closed {
		return &domain.ConnectionError{Op: "close store", Err: ErrStoreClosed}
	}
	s.closed = true
	return nil
}

// Mutations counts operations that changed the store.
func (s *Store) Mutations() int {
	return s.mutations
}

// AddFolder creates a folder and its missing ancestors.
func (s *Store) AddFolder(name string, t domain.FolderType) error {
	n := s.nodes[s.lookup(name)]
	if n.exists {
		return fmt.Errorf("folder %q already exists", name)
	}
	s.create(s.lookup(name), t)
	return nil
}

// AddMessage stores a raw message in an existing folder.
func (s *Store) AddMessage(folder string, raw []byte, received time.Time, flags ...domain.Flag) error {
	idx, ok := s.byName[folder]
	if !ok || !s.nodes[idx].exists {
		return fmt.Errorf("could not add message to %q: %w", folder, ErrFolderNotFound)
	}
	return s.append(s.nodes[idx], &domain.RawMessage{Flags: flags, Date: received, Body: raw})
}

// Messages returns the descriptors of all messages in folder, deleted ones
// included.
func (s *Store) Messages(folder string) []*domain.Message {
	idx, ok := s.byName[folder]
	if !ok {
		return nil
	}

	result := []*domain.Message{}
	for _, m := range s.nodes[idx].messages {
		result = append(result, m.descriptor(&Folder{store: s, index: idx}))
	}
	return result
}

// FolderNames lists the full names of all existing folders in creation
// order, the root excluded.
func (s *Store) FolderNames() []string {
	names := []string{}
	for _, n := range s.nodes[1:] {
		if n.exists {
			names = append(names, n.fullName)
		}
	}
	return names
}

func (s *Store) FailOpen(folder string, err error) {
	s.faultsFor(folder).open = err
}

func (s *Store) FailList(folder string, err error) {
	s.faultsFor(folder).list = err
}

func (s *Store) FailCopy(folder string, err error) {
	s.faultsFor(folder).copy = err
}

func (s *Store) faultsFor(folder string) *faults {
	f, ok := s.faults[folder]
	if !ok {
		f = &faults{}
		s.faults[folder] = f
	}
	return f
}

func (s *Store) fault(folder string) faults {
	if f, ok := s.faults[folder]; ok {
		return *f
	}
	return faults{}
}

// lookup returns the arena index for name, adding a node that does not exist
// yet if the name is unknown.
func (s *Store) lookup(name string) int {
	if idx, ok := s.byName[name]; ok {
		return idx
	}

	parent := rootIndex
	if i := strings.LastIndex(name, string(s.separator)); i >= 0 {
		parent = s.lookup(name[:i])
	}

	s.nodes = append(s.nodes, &node{
		fullName: name,
		parent:   parent,
		nextUid:  1,
	})
	idx := len(s.nodes) - 1
	s.byName[name] = idx
	return idx
}

func (s *Store) create(idx int, t domain.FolderType) {
	n := s.nodes[idx]
	if p := s.nodes[n.parent]; !p.exists {
		s.create(n.parent, domain.HoldsMessages|domain.HoldsFolders)
	}

	n.exists = true
	n.typ = t
	s.nodes[n.parent].children = append(s.nodes[n.parent].children, idx)
	s.mutations++
}

func (s *Store) append(n *node, raw *domain.RawMessage) error {
	metadata, err := mail.Describe(raw.Body)
	if err != nil {
		return fmt.Errorf("could not describe message: %w", err)
	}
	metadata.ReceivedDate = raw.Date

	flags := []domain.Flag{}
	for _, f := range raw.Flags {
		if f != domain.RecentFlag {
			flags = append(flags, f)
		}
	}

	n.messages = append(n.messages, &storedMessage{
		uid:      n.nextUid,
		raw:      append([]byte{}, raw.Body...),
		date:     raw.Date,
		flags:    flags,
		metadata: *metadata,
	})
	n.nextUid++
	s.mutations++
	return nil
}

func (m *storedMessage) descriptor(f *Folder) *domain.Message {
	d := m.metadata
	d.Uid = m.uid
	d.Folder = f
	d.Flags = append([]domain.Flag{}, m.flags...)
	return &d
}
