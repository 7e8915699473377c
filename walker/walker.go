// SPDX-License-Identifier: GPL-3.0-or-later

// Package walker traverses a folder hierarchy pre-order.
package walker

import (
	"context"
	"errors"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"

	"github.com/sirupsen/logrus"
)

const DefaultMaxDepth = 64

var ErrMaxDepth = errors.New("maximum folder depth exceeded")

// Visitor is called for every folder of the walk. EnterFolder runs before the
// messages and children of the folder; the visitor it returns is used for the
// children, nil skips them. VisitMessages runs while a message holding folder
// is open.
type Visitor interface {
	EnterFolder(ctx context.Context, f domain.Folder) (Visitor, error)
	VisitMessages(ctx context.Context, f domain.Folder) error
}

type Options struct {
	Recursive bool
	Mode      domain.OpenMode
	// Expunge is passed to Close of every opened folder.
	Expunge  bool
	MaxDepth int
	// OnError receives errors that only affect one folder. The walk continues
	// with the next sibling.
	OnError func(f domain.Folder, err error)
}

type walker struct {
	opts Options
	l    *logrus.Logger
}

// Walk visits root and, if opts.Recursive is set, its subtree. Errors that
// are reported to OnError are not returned; errors for which domain.IsFatal
// holds end the walk and are returned.
func Walk(ctx context.Context, root domain.Folder, v Visitor, opts Options) error {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	w := &walker{
		opts: opts,
		l:    log.Logger(log.LOG_WALKER),
	}
	return w.walk(ctx, root, v, 0)
}

func (w *walker) walk(ctx context.Context, f domain.Folder, v Visitor, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth > w.opts.MaxDepth {
		return w.report(f, &domain.FolderAccessError{Folder: f.FullName(), Op: "descend into", Err: ErrMaxDepth})
	}

	logger := w.l.WithFields(logrus.Fields{"folder": f.FullName(), "depth": depth})
	logger.Debug("Entering folder")

	child, err := v.EnterFolder(ctx, f)
	if err != nil {
		return w.report(f, err)
	}

	if f.Type().HoldsMessages() {
		if err := f.Open(w.opts.Mode); err != nil {
			if !domain.IsFatal(err) {
				err = &domain.FolderAccessError{Folder: f.FullName(), Op: "open", Err: err}
			}
			return w.report(f, err)
		}

		if err := w.visitMessages(ctx, f, v); err != nil {
			if domain.IsFatal(err) {
				return err
			}
			w.report(f, err)
		}
	}

	if !w.opts.Recursive || child == nil || !f.Type().HoldsFolders() {
		return nil
	}

	children, err := f.List()
	if err != nil {
		return w.report(f, &domain.FolderAccessError{Folder: f.FullName(), Op: "list", Err: err})
	}
	logger.WithField("children", len(children)).Debug("Listed subfolders")

	for _, c := range children {
		if err := w.walk(ctx, c, child, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// visitMessages runs the visitor on an open folder and closes it. A failing
// visitor does not skip the children of the folder.
func (w *walker) visitMessages(ctx context.Context, f domain.Folder, v Visitor) error {
	visitErr := v.VisitMessages(ctx, f)

	closeErr := f.Close(w.opts.Expunge)
	if closeErr != nil && !domain.IsFatal(closeErr) {
		closeErr = &domain.FolderAccessError{Folder: f.FullName(), Op: "close", Err: closeErr}
	}

	if visitErr == nil {
		return closeErr
	}
	if closeErr != nil {
		if !domain.IsFatal(visitErr) && domain.IsFatal(closeErr) {
			return closeErr
		}
		w.report(f, closeErr)
	}
	return visitErr
}

// report hands a folder scoped error to OnError and swallows it. Fatal errors
// are returned instead.
func (w *walker) report(f domain.Folder, err error) error {
	if domain.IsFatal(err) {
		return err
	}

	w.l.WithFields(logrus.Fields{"folder": f.FullName(), "error": err}).Warn("Skipping folder")
	if w.opts.OnError != nil {
		w.opts.OnError(f, err)
	}
	return nil
}
