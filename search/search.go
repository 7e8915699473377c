// SPDX-License-Identifier: GPL-3.0-or-later

// Package search runs a predicate over folders of a mail store and applies
// the copy, handler and purge side effects to the matches.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/CrawX/go-imap-mailtool/domain"
	"github.com/CrawX/go-imap-mailtool/handler"
	"github.com/CrawX/go-imap-mailtool/log"
	"github.com/CrawX/go-imap-mailtool/predicate"
	"github.com/CrawX/go-imap-mailtool/walker"

	"github.com/dustin/go-humanize/english"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Summary counts the effects of one run. Errors holds the folder scoped errors
// that did not stop the run.
type Summary struct {
	Folders int
	Matched int
	Purged  int
	Copied  int
	Errors  *multierror.Error
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

type Searcher struct {
	store         domain.MailStore
	configuration *configuration

	l *logrus.Logger
}

func NewSearcher(store domain.MailStore, configFunc ...ConfigFunc) (*Searcher, error) {
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

	if err := config.checkSafety(""); err != nil {
		return nil, err
	}

	return &Searcher{
		store:         store,
		configuration: config,
		l:             log.Logger(log.LOG_SEARCH),
	}, nil
}

// Run searches the named folders, or the default folder if no names are
// given. The returned error is set only for errors that stop the
// run; everything else is collected in the summary.
func (s *Searcher) Run(ctx context.Context, folders []string, p predicate.Predicate) (*Summary, error) {
	cfg := s.configuration
	if p == nil {
		return nil, errors.New("predicate cannot be nil")
	}
	if err := cfg.checkSafety(""); err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		if cfg.Recursive {
			return nil, &domain.SafetyViolation{Reason: "recursion requires explicit folder names"}
		}
		if cfg.Purge {
			return nil, &domain.SafetyViolation{Reason: "purge requires explicit folder names"}
		}
	}

	roots, err := s.resolveFolders(folders)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	v := &visitor{
		searcher:  s,
		predicate: p,
		summary:   summary,
	}

	if len(cfg.CopyTo) > 0 {
		v.copyTarget, err = s.copyTarget()
		if err != nil {
			return summary, err
		}
	}

	mode := domain.ReadOnly
	if cfg.Purge {
		mode = domain.ReadWrite
	}

	s.l.WithFields(logrus.Fields{"folders": len(roots), "predicate": p, "recursive": cfg.Recursive, "purge": cfg.Purge}).Info("Starting search")
	for _, root := range roots {
		err := walker.Walk(ctx, root, v, walker.Options{
			Recursive: cfg.Recursive,
			Mode:      mode,
			Expunge:   cfg.Purge,
			MaxDepth:  cfg.MaxDepth,
			OnError: func(f domain.Folder, err error) {
				summary.Errors = multierror.Append(summary.Errors, err)
			},
		})
		if err != nil {
			return summary, err
		}
	}

	if cfg.Quiet {
		verb := "found"
		count := summary.Matched
		if cfg.Purge {
			verb = "purged"
			count = summary.Purged
		}
		fmt.Fprintf(cfg.Output, "TOTAL : %s %s in %s\n", english.Plural(count, "message", "messages"), verb, english.Plural(summary.Folders, "folder", "folders"))
	}

	s.l.WithFields(logrus.Fields{
		"folders": summary.Folders,
		"matched": summary.Matched,
		"copied":  summary.Copied,
		"purged":  summary.Purged,
		"errors":  summary.ErrorCount(),
	}).Info("Search finished")
	return summary, nil
}

func (s *Searcher) resolveFolders(names []string) ([]domain.Folder, error) {
	if len(names) == 0 && len(s.configuration.DefaultFolder) > 0 {
		names = []string{s.configuration.DefaultFolder}
	} else if len(names) == 0 {
		f, err := s.store.DefaultFolder()
		if err != nil {
			return nil, fmt.Errorf("could not get default folder: %w", err)
		}
		return []domain.Folder{f}, nil
	}

	result := []domain.Folder{}
	for _, name := range names {
		f, err := s.store.Folder(name)
		if err != nil {
			return nil, fmt.Errorf("could not get folder %s: %w", name, err)
		}
		result = append(result, f)
	}
	return result, nil
}

// copyTarget resolves the CopyTo folder and creates it if it does not exist.
func (s *Searcher) copyTarget() (domain.Folder, error) {
	name := s.configuration.CopyTo
	f, err := s.store.Folder(name)
	if err != nil {
		return nil, fmt.Errorf("could not get folder %s: %w", name, err)
	}

	exists, err := f.Exists()
	if err != nil {
		return nil, &domain.FolderAccessError{Folder: name, Op: "check", Err: err}
	}
	if !exists {
		s.l.WithField("folder", name).Info("Creating copy target")
		if err := f.Create(domain.HoldsMessages); err != nil {
			return nil, &domain.FolderAccessError{Folder: name, Op: "create", Err: err}
		}
	}
	return f, nil
}

type visitor struct {
	searcher   *Searcher
	predicate  predicate.Predicate
	copyTarget domain.Folder
	summary    *Summary
}

func (v *visitor) EnterFolder(ctx context.Context, f domain.Folder) (walker.Visitor, error) {
	if err := v.searcher.configuration.checkSafety(f.FullName()); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *visitor) VisitMessages(ctx context.Context, f domain.Folder) error {
	cfg := v.searcher.configuration
	logger := v.searcher.l.WithField("folder", f.FullName())

	// the copy target is never searched, matches copied there must survive a purge
	if v.isCopyTarget(f) {
		logger.Info("Skipping copy target")
		return nil
	}
	v.summary.Folders++

	display := cfg.Handler == nil && !cfg.Quiet
	if display {
		fmt.Fprintf(cfg.Output, "Searching folder %s\n", f.FullName())
	}

	msgs, err := f.Search(v.predicate)
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		return &domain.FolderAccessError{Folder: f.FullName(), Op: "search", Err: err}
	}
	v.summary.Matched += len(msgs)
	logger.WithField("matches", len(msgs)).Debug("Searched folder")

	if cfg.Sort {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].EffectiveDate().Before(msgs[j].EffectiveDate())
		})
	}

	if len(msgs) > 0 && v.copyTarget != nil {
		if err := f.CopyMessages(msgs, v.copyTarget); err != nil {
			if domain.IsFatal(err) {
				return err
			}
			return &domain.PartialCopyError{Source: f.FullName(), Destination: v.copyTarget.FullName(), Count: len(msgs), Err: err}
		}
		v.summary.Copied += len(msgs)
		logger.WithFields(logrus.Fields{"count": len(msgs), "destination": v.copyTarget.FullName()}).Info("Copied matches")
	}

	for i, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cfg.Handler != nil {
			if err := cfg.Handler.HandleMessage(ctx, m); err != nil {
				return fmt.Errorf("could not handle message %d in %s: %w", m.Uid, f.FullName(), err)
			}
		} else if display {
			fmt.Fprintf(cfg.Output, "Message %d:\n", i+1)
			if err := handler.NewSimple(cfg.Output).HandleMessage(ctx, m); err != nil {
				return err
			}
		}
	}

	if cfg.Purge && len(msgs) > 0 {
		if err := f.SetFlags(msgs, domain.DeletedFlag, true); err != nil {
			if domain.IsFatal(err) {
				return err
			}
			return &domain.FolderAccessError{Folder: f.FullName(), Op: "flag messages in", Err: err}
		}
		v.summary.Purged += len(msgs)
		logger.WithField("count", len(msgs)).Info("Flagged matches as deleted")
	}

	if cfg.Quiet {
		verb := "found"
		if cfg.Purge {
			verb = "purged"
		}
		fmt.Fprintf(cfg.Output, "Messages %s : %d\n", verb, len(msgs))
	}
	return nil
}

func (v *visitor) isCopyTarget(f domain.Folder) bool {
	return v.copyTarget != nil && v.copyTarget.FullName() == f.FullName()
}
