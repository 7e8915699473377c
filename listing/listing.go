// SPDX-License-Identifier: GPL-3.0-or-later

// Package listing prints folder trees and folder ancestry.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/predicate"
	"github.com/CrawX/go-imap-mailtool/walker"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

type configuration struct {
	Output   io.Writer
	Counters bool
	Sizes    bool
	MaxDepth int
}

type ConfigFunc func(*configuration) error

func Output(w io.Writer) ConfigFunc {
	return func(c *configuration) error {
		if w == nil {
			return errors.New("Output cannot be nil")
		}
		c.Output = w
		return nil
	}
}

// Counters adds the total, new, unread and deleted message counts.
func Counters() ConfigFunc {
	return func(c *configuration) error {
		c.Counters = true
		return nil
	}
}

// Sizes adds the number and total size of the messages not flagged deleted.
func Sizes() ConfigFunc {
	return func(c *configuration) error {
		c.Sizes = true
		return nil
	}
}

func MaxDepth(depth int) ConfigFunc {
	return func(c *configuration) error {
		if depth <= 0 {
			return errors.New("MaxDepth must be positive")
		}
		c.MaxDepth = depth
		return nil
	}
}

type Lister struct {
	configuration *configuration
	l             *logrus.Logger
}

func NewLister(configFunc ...ConfigFunc) (*Lister, error) {
	config := &configuration{}
	for _, f := range configFunc {
		if err := f(config); err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Lister{
		configuration: config,
		l:             log.Logger(log.LOG_MAIN),
	}, nil
}

// ListFolders prints every message holding folder of the tree below root.
// Errors of single folders are printed and returned together once the tree
// was listed.
func (ls *Lister) ListFolders(ctx context.Context, root domain.Folder) error {
	out := ls.configuration.Output

	def, err := root.Store().DefaultFolder()
	if err != nil {
		return fmt.Errorf("could not get default folder: %w", err)
	}
	fmt.Fprintf(out, "# Default folder is %q\n", def.FullName())
	fmt.Fprintf(out, "# Folder delimiter is %c\n", root.Separator())

	var errs *multierror.Error
	opts := walker.Options{
		Recursive: true,
		Mode:      domain.ReadOnly,
		MaxDepth:  ls.configuration.MaxDepth,
		OnError: func(f domain.Folder, err error) {
			fmt.Fprintf(out, "ERROR whilst processing %s : %v\n", f.FullName(), err)
			errs = multierror.Append(errs, err)
		},
	}

	if err := walker.Walk(ctx, root, &folderVisitor{lister: ls}, opts); err != nil {
		return err
	}
	return errs.ErrorOrNil()
}

type folderVisitor struct {
	lister *Lister
}

func (v *folderVisitor) detailed() bool {
	return v.lister.configuration.Counters || v.lister.configuration.Sizes
}

func (v *folderVisitor) EnterFolder(ctx context.Context, f domain.Folder) (walker.Visitor, error) {
	if f.Type().HoldsMessages() && !v.detailed() {
		fmt.Fprintln(v.lister.configuration.Output, f.FullName())
	}
	return v, nil
}

func (v *folderVisitor) VisitMessages(ctx context.Context, f domain.Folder) error {
	if !v.detailed() {
		return nil
	}

	line := f.FullName()
	if v.lister.configuration.Counters {
		total, err := f.MessageCount()
		if err != nil {
			return fmt.Errorf("could not count messages: %w", err)
		}
		counts := []int{total}
		for _, p := range []predicate.Predicate{
			predicate.FlagIsSet{Flag: domain.RecentFlag},
			predicate.FlagIsClear{Flag: domain.SeenFlag},
			predicate.FlagIsSet{Flag: domain.DeletedFlag},
		} {
			msgs, err := f.Search(p)
			if err != nil {
				return fmt.Errorf("could not count messages: %w", err)
			}
			counts = append(counts, len(msgs))
		}
		line += fmt.Sprintf("\t%d\t%d\t%d\t%d", counts[0], counts[1], counts[2], counts[3])
	}

	if v.lister.configuration.Sizes {
		msgs, err := f.Search(predicate.NotDeleted())
		if err != nil {
			return fmt.Errorf("could not sum message sizes: %w", err)
		}
		var total int64
		for _, m := range msgs {
			total += m.Size
		}
		line += fmt.Sprintf("\t%d\t%d", len(msgs), total)
	}

	fmt.Fprintln(v.lister.configuration.Output, line)
	v.lister.l.WithFields(logrus.Fields{"folder": f.FullName()}).Debug("Listed folder")
	return nil
}

// ListFolderParents prints f and all of its ancestors up to the root.
func (ls *Lister) ListFolderParents(f domain.Folder) error {
	out := ls.configuration.Output
	for f != nil {
		parent, err := f.Parent()
		if err != nil {
			return fmt.Errorf("could not get parent of %q: %w", f.FullName(), err)
		}

		line := fmt.Sprintf("'%s'", f.FullName())
		if f.Type().HoldsFolders() {
			line += " [HOLDS_FOLDERS]"
		}
		if f.Type().HoldsMessages() {
			line += " [HOLDS_MESSAGES]"
		}
		if parent == nil {
			line += " [IS ROOT]"
		}
		fmt.Fprintln(out, line)

		f = parent
	}
	return nil
}
