// SPDX-License-Identifier: GPL-3.0-or-later
package memstore

import (
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/mail"
)

// Folder is a handle to one arena node.
type Folder struct {
	store *Store
	index int
}

func (f *Folder) node() *node {
	return f.store.nodes[f.index]
}

func (f *Folder) FullName() string {
	return f.node().fullName
}

func (f *Folder) Name() string {
	name := f.node().fullName
	if i := strings.LastIndex(name, string(f.store.separator)); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (f *Folder) Separator() rune {
	return f.store.separator
}

func (f *Folder) Type() domain.FolderType {
	n := f.node()
	if !n.exists {
		return domain.HoldsMessages | domain.HoldsFolders
	}
	return n.typ
}

func (f *Folder) State() domain.FolderState {
	return f.node().state
}

func (f *Folder) Parent() (domain.Folder, error) {
	parent := f.node().parent
	if parent < 0 {
		return nil, nil
	}
	return &Folder{store: f.store, index: parent}, nil
}

func (f *Folder) Store() domain.MailStore {
	return f.store
}

func (f *Folder) Exists() (bool, error) {
	if err := f.checkConnected("check folder"); err != nil {
		return false, err
	}
	return f.node().exists, nil
}

func (f *Folder) Create(t domain.FolderType) error {
	if err := f.checkConnected("create folder"); err != nil {
		return err
	}
	n := f.node()
	if n.exists {
		return &domain.FolderStateError{Folder: n.fullName, Op: "create", State: n.state}
	}
	f.store.create(f.index, t)
	return nil
}

func (f *Folder) Open(mode domain.OpenMode) error {
	if err := f.checkConnected("open folder"); err != nil {
		return err
	}
	n := f.node()
	if n.state != domain.Closed {
		return &domain.FolderStateError{Folder: n.fullName, Op: "open", State: n.state}
	}
	if !n.exists {
		return ErrFolderNotFound
	}
	if !n.typ.HoldsMessages() {
		return fmt.Errorf("folder %q cannot hold messages", n.fullName)
	}
	if err := f.store.fault(n.fullName).open; err != nil {
		return err
	}

	n.state = mode.State()
	return nil
}

func (f *Folder) Close(expunge bool) error {
	n := f.node()
	if n.state == domain.Closed {
		return &domain.FolderStateError{Folder: n.fullName, Op: "close", State: n.state}
	}

	if expunge && n.state == domain.OpenWrite {
		kept := n.messages[:0]
		for _, m := range n.messages {
			if !hasFlag(m.flags, domain.DeletedFlag) {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(n.messages) {
			f.store.mutations++
		}
		n.messages = kept
	}

	n.state = domain.Closed
	return nil
}

func (f *Folder) List() ([]domain.Folder, error) {
	if err := f.checkConnected("list folder"); err != nil {
		return nil, err
	}
	n := f.node()
	if n.state != domain.Closed || !n.exists || !n.typ.HoldsFolders() {
		return nil, &domain.FolderStateError{Folder: n.fullName, Op: "list", State: n.state}
	}
	if err := f.store.fault(n.fullName).list; err != nil {
		return nil, err
	}

	children := []domain.Folder{}
	for _, idx := range n.children {
		children = append(children, &Folder{store: f.store, index: idx})
	}
	return children, nil
}

func (f *Folder) MessageCount() (int, error) {
	if err := f.checkConnected("count messages"); err != nil {
		return 0, err
	}
	n := f.node()
	if !n.exists {
		return 0, ErrFolderNotFound
	}
	return len(n.messages), nil
}

func (f *Folder) Search(m domain.Matcher) ([]*domain.Message, error) {
	if err := f.checkOpen("search"); err != nil {
		return nil, err
	}

	result := []*domain.Message{}
	for _, stored := range f.node().messages {
		d := stored.descriptor(f)
		if m.Match(d) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (f *Folder) CopyMessages(msgs []*domain.Message, dest domain.Folder) error {
	if err := f.checkOpen("copy from"); err != nil {
		return err
	}
	if err := f.store.fault(f.FullName()).copy; err != nil {
		return err
	}

	if other, ok := dest.(*Folder); ok && other.store == f.store {
		if !other.node().exists {
			return fmt.Errorf("could not copy to %q: %w", other.FullName(), ErrFolderNotFound)
		}
		stored, err := f.resolve(msgs)
		if err != nil {
			return err
		}
		for _, m := range stored {
			err := f.store.append(other.node(), &domain.RawMessage{Flags: m.flags, Date: m.date, Body: m.raw})
			if err != nil {
				return err
			}
		}
		return nil
	}

	appender, ok := dest.(domain.Appender)
	if !ok {
		return fmt.Errorf("folder %q does not accept messages from another store", dest.FullName())
	}
	if dest.State() != domain.OpenWrite {
		return &domain.FolderStateError{Folder: dest.FullName(), Op: "copy into", State: dest.State()}
	}

	raws := []*domain.RawMessage{}
	err := f.FetchRaw(msgs, func(m *domain.Message, raw *domain.RawMessage) error {
		raws = append(raws, raw)
		return nil
	})
	if err != nil {
		return err
	}
	return appender.AppendMessages(raws)
}

func (f *Folder) SetFlags(msgs []*domain.Message, flag domain.Flag, value bool) error {
	if err := f.checkOpen("set flags on"); err != nil {
		return err
	}
	n := f.node()
	if n.state != domain.OpenWrite {
		return &domain.FolderStateError{Folder: n.fullName, Op: "set flags on", State: n.state}
	}

	stored, err := f.resolve(msgs)
	if err != nil {
		return err
	}
	for i, m := range stored {
		m.flags = domain.WithFlag(m.flags, flag, value)
		msgs[i].Flags = append([]domain.Flag{}, m.flags...)
	}
	f.store.mutations++
	return nil
}

func (f *Folder) AppendMessages(msgs []*domain.RawMessage) error {
	n := f.node()
	if n.state != domain.OpenWrite {
		return &domain.FolderStateError{Folder: n.fullName, Op: "append to", State: n.state}
	}
	for _, raw := range msgs {
		if err := f.store.append(n, raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *Folder) FetchRaw(msgs []*domain.Message, fn func(m *domain.Message, raw *domain.RawMessage) error) error {
	if err := f.checkOpen("fetch from"); err != nil {
		return err
	}
	stored, err := f.resolve(msgs)
	if err != nil {
		return err
	}
	for i, m := range stored {
		raw := &domain.RawMessage{
			Flags: append([]domain.Flag{}, m.flags...),
			Date:  m.date,
			Body:  m.raw,
		}
		if err := fn(msgs[i], raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *Folder) Headers(msg *domain.Message) ([]domain.HeaderField, error) {
	if err := f.checkOpen("read headers in"); err != nil {
		return nil, err
	}
	stored, err := f.resolve([]*domain.Message{msg})
	if err != nil {
		return nil, err
	}
	return mail.Headers(stored[0].raw)
}

func (f *Folder) checkConnected(op string) error {
	if f.store.closed {
		return &domain.ConnectionError{Op: op, Err: ErrStoreClosed}
	}
	return nil
}

func (f *Folder) checkOpen(op string) error {
	if err := f.checkConnected(op); err != nil {
		return err
	}
	n := f.node()
	if n.state == domain.Closed {
		return &domain.FolderStateError{Folder: n.fullName, Op: op, State: n.state}
	}
	return nil
}

func (f *Folder) resolve(msgs []*domain.Message) ([]*storedMessage, error) {
	byUid := map[uint32]*storedMessage{}
	for _, m := range f.node().messages {
		byUid[m.uid] = m
	}

	result := make([]*storedMessage, 0, len(msgs))
	for _, m := range msgs {
		if owner, ok := m.Folder.(*Folder); ok && (owner.store != f.store || owner.index != f.index) {
			return nil, fmt.Errorf("message %d belongs to folder %q", m.Uid, owner.FullName())
		}
		stored, ok := byUid[m.Uid]
		if !ok {
			return nil, fmt.Errorf("message %d is not in folder %q", m.Uid, f.FullName())
		}
		result = append(result, stored)
	}
	return result, nil
}

func hasFlag(flags []domain.Flag, flag domain.Flag) bool {
	for _, f := range flags {
		if strings.EqualFold(string(f), string(flag)) {
			return true
		}
	}
	return false
}
