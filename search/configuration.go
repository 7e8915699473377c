// SPDX-License-Identifier: GPL-3.0-or-later
package search

import (
	"fmt"
	"io"

	"github.com/CrawX/go-imap-mailtool/domain"
)

type ConfigFunc func(c *configuration) error

func Recursive() ConfigFunc {
	return func(c *configuration) error {
		c.Recursive = true
		return nil
	}
}

// Purge flags every match as deleted and expunges on close.
func Purge() ConfigFunc {
	return func(c *configuration) error {
		c.Purge = true
		return nil
	}
}

// DangerMode allows Purge together with Recursive.
func DangerMode() ConfigFunc {
	return func(c *configuration) error {
		c.DangerMode = true
		return nil
	}
}

func CopyTo(folder string) ConfigFunc {
	return func(c *configuration) error {
		if len(folder) == 0 {
			return fmt.Errorf("CopyTo folder cannot be empty")
		}

		c.CopyTo = folder
		return nil
	}
}

// DefaultFolder replaces the default folder of the store when Run gets no
// folder names. The guards for unnamed folders still apply.
func DefaultFolder(folder string) ConfigFunc {
	return func(c *configuration) error {
		c.DefaultFolder = folder
		return nil
	}
}

func Quiet() ConfigFunc {
	return func(c *configuration) error {
		c.Quiet = true
		return nil
	}
}

func Sort() ConfigFunc {
	return func(c *configuration) error {
		c.Sort = true
		return nil
	}
}

func Handler(h domain.MessageHandler) ConfigFunc {
	return func(c *configuration) error {
		if h == nil {
			return fmt.Errorf("Handler cannot be nil")
		}

		c.Handler = h
		return nil
	}
}

func Output(w io.Writer) ConfigFunc {
	return func(c *configuration) error {
		if w == nil {
			return fmt.Errorf("Output cannot be nil")
		}

		c.Output = w
		return nil
	}
}

func MaxDepth(depth int) ConfigFunc {
	return func(c *configuration) error {
		if depth <= 0 {
			return fmt.Errorf("MaxDepth must be positive")
		}

		c.MaxDepth = depth
		return nil
	}
}

type configuration struct {
	Recursive  bool
	Purge      bool
	DangerMode bool
	Quiet      bool
	Sort       bool

	CopyTo        string
	DefaultFolder string

	Handler domain.MessageHandler
	Output  io.Writer

	MaxDepth int
}

// checkSafety rejects a recursive purge unless DangerMode is set.
func (c *configuration) checkSafety(folder string) error {
	if c.Recursive && c.Purge && !c.DangerMode {
		return &domain.SafetyViolation{
			Folder: folder,
			Reason: "purge and recursive cannot be combined without danger mode",
		}
	}

	return nil
}
