// SPDX-License-Identifier: GPL-3.0-or-later

// Package migration copies a folder tree with its messages into another
// folder, usually of another store.
package migration

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/predicate"
	"github.com/CrawX/go-imap-mailtool/walker"

	"github.com/dustin/go-humanize/english"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

type Summary struct {
	// Folders counts the folders below the source root.
	Folders  int
	Messages int
	Created  int
	Copied   int
	Errors   *multierror.Error
}

func (s *Summary) Err() error {
	return s.Errors.ErrorOrNil()
}

func (s *Summary) ErrorCount() int {
	if s.Errors == nil {
		return 0
	}
	return len(s.Errors.Errors)
}

type Migrator struct {
	source      domain.Folder
	destination domain.Folder

	configuration *configuration

	l *logrus.Logger
}

func NewMigrator(source, destination domain.Folder, configFunc ...ConfigFunc) (*Migrator, error) {
	config := &configuration{}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Migrator{
		source:        source,
		destination:   destination,
		configuration: config,
		l:             log.Logger(log.LOG_MIGRATION),
	}, nil
}

// Run counts the source tree and then mirrors it into the destination. Messages
// are not deduplicated: running it twice copies everything twice.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	out := m.configuration.Output

	fmt.Fprintln(out, "STAGE 1: COUNT ALL SOURCE FOLDERS AND MESSAGES")
	if err := m.count(ctx, summary); err != nil {
		return summary, err
	}
	fmt.Fprintf(out, "\nTOTAL : %s in %s\n\n",
		english.Plural(summary.Messages, "message", "messages"),
		english.Plural(summary.Folders, "folder", "folders"))

	if m.configuration.CountOnly {
		return summary, nil
	}

	fmt.Fprintln(out, "STAGE 2: COPY ALL SOURCE FOLDERS AND MESSAGES")
	if err := m.mirror(ctx, summary); err != nil {
		return summary, err
	}

	m.l.WithFields(logrus.Fields{
		"folders": summary.Folders,
		"created": summary.Created,
		"copied":  summary.Copied,
		"errors":  summary.ErrorCount(),
	}).Info("Migration finished")
	return summary, nil
}

func (m *Migrator) walkOptions(summary *Summary) walker.Options {
	return walker.Options{
		Recursive: true,
		Mode:      domain.ReadOnly,
		MaxDepth:  m.configuration.MaxDepth,
		OnError: func(f domain.Folder, err error) {
			summary.Errors = multierror.Append(summary.Errors, err)
		},
	}
}

func (m *Migrator) count(ctx context.Context, summary *Summary) error {
	v := &countVisitor{migrator: m, summary: summary, root: true}
	return walker.Walk(ctx, m.source, v, m.walkOptions(summary))
}

func (m *Migrator) mirror(ctx context.Context, summary *Summary) error {
	v := &mirrorVisitor{migrator: m, summary: summary}
	return walker.Walk(ctx, m.source, v, m.walkOptions(summary))
}

type countVisitor struct {
	migrator *Migrator
	summary  *Summary
	root     bool
}

func (v *countVisitor) EnterFolder(ctx context.Context, f domain.Folder) (walker.Visitor, error) {
	if !v.root {
		v.summary.Folders++
	}
	return &countVisitor{migrator: v.migrator, summary: v.summary}, nil
}

func (v *countVisitor) VisitMessages(ctx context.Context, f domain.Folder) error {
	msgs, err := f.Search(predicate.NotDeleted())
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		return &domain.FolderAccessError{Folder: f.FullName(), Op: "count messages in", Err: err}
	}

	v.summary.Messages += len(msgs)
	fmt.Fprintf(v.migrator.configuration.Output, "\t%s : %s\n", f.FullName(), english.Plural(len(msgs), "message", "messages"))
	return nil
}

// mirrorVisitor resolves the destination of every folder below parent.
type mirrorVisitor struct {
	migrator *Migrator
	summary  *Summary

	// parent is nil for the visitor of the source root.
	parent domain.Folder
	// current is the destination of the folder last passed to EnterFolder.
	current domain.Folder
}

// DestinationName maps a source folder name below the destination parent.
func DestinationName(parent string, separator rune, leaf string) string {
	if len(parent) == 0 {
		return leaf
	}
	return parent + string(separator) + leaf
}

func (v *mirrorVisitor) EnterFolder(ctx context.Context, f domain.Folder) (walker.Visitor, error) {
	dest := v.migrator.destination
	if v.parent != nil {
		var err error
		name := DestinationName(v.parent.FullName(), v.parent.Separator(), f.Name())
		dest, err = v.parent.Store().Folder(name)
		if err != nil {
			return nil, fmt.Errorf("could not get destination folder %s: %w", name, err)
		}
	}

	exists, err := dest.Exists()
	if err != nil {
		return nil, &domain.FolderAccessError{Folder: dest.FullName(), Op: "check", Err: err}
	}
	if !exists {
		if err := dest.Create(f.Type()); err != nil {
			return nil, &domain.FolderAccessError{Folder: dest.FullName(), Op: "create", Err: err}
		}
		v.summary.Created++
		v.migrator.l.WithFields(logrus.Fields{"folder": dest.FullName(), "type": f.Type()}).Info("Created destination folder")
	}

	v.current = dest
	return &mirrorVisitor{migrator: v.migrator, summary: v.summary, parent: dest}, nil
}

func (v *mirrorVisitor) VisitMessages(ctx context.Context, f domain.Folder) error {
	dest := v.current
	logger := v.migrator.l.WithFields(logrus.Fields{"source": f.FullName(), "destination": dest.FullName()})

	msgs, err := f.Search(predicate.NotDeleted())
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		return &domain.FolderAccessError{Folder: f.FullName(), Op: "search", Err: err}
	}

	if err := dest.Open(domain.ReadWrite); err != nil {
		if domain.IsFatal(err) {
			return err
		}
		return &domain.FolderAccessError{Folder: dest.FullName(), Op: "open", Err: err}
	}

	start := time.Now()
	var copyErr error
	if len(msgs) > 0 {
		copyErr = f.CopyMessages(msgs, dest)
	}
	duration := time.Since(start)

	if err := dest.Close(false); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		if domain.IsFatal(copyErr) {
			return copyErr
		}
		return &domain.PartialCopyError{Source: f.FullName(), Destination: dest.FullName(), Count: len(msgs), Err: copyErr}
	}

	v.summary.Copied += len(msgs)
	fmt.Fprintf(v.migrator.configuration.Output, "\tCopying %s from %s to %s [%.1f seconds]\n",
		english.Plural(len(msgs), "message", "messages"), f.FullName(), dest.FullName(), duration.Seconds())
	logger.WithFields(logrus.Fields{"count": len(msgs), "duration": duration}).Debug("Copied messages")
	return nil
}
