// Package frontend holds the two ways the console process can own the
// foreground: an interactive terminal UI and a plain quit-key loop. Both
// share one contract so the lifecycle never needs to know which is used.
package frontend

import (
	"context"

	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/pkg/errors"
)

var ErrNotConfigured = errors.New("frontend is not configured")

type Frontend interface {
	Configure(c *console.Console) error
	Connect() error
	// Run blocks until the user asks to quit or ctx is cancelled.
	Run(ctx context.Context) error
}
