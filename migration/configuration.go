// SPDX-License-Identifier: GPL-3.0-or-later
package migration

import (
	"fmt"
	"io"
)

type ConfigFunc func(c *configuration) error

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

// CountOnly stops after the first stage.
func CountOnly() ConfigFunc {
	return func(c *configuration) error {
		c.CountOnly = true
		return nil
	}
}

type configuration struct {
	Output    io.Writer
	MaxDepth  int
	CountOnly bool
}
