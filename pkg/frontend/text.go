package frontend

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	QuitKey = 'q'
	// Ctrl-C arrives as a byte, not a signal, once the terminal is raw.
	interruptKey = 0x03
)

// Text is the headless front end: it prompts and reads single keys until
// the quit key is pressed.
type Text struct {
	in      io.Reader
	out     io.Writer
	logger  *zap.Logger
	console *console.Console
}

func NewText(in io.Reader, out io.Writer, logger *zap.Logger) *Text {
	return &Text{in: in, out: out, logger: logger}
}

func (t *Text) Configure(c *console.Console) error {
	t.console = c
	return nil
}

func (t *Text) Connect() error {
	if t.console == nil {
		return ErrNotConfigured
	}
	return nil
}

type keyRead struct {
	key byte
	err error
}

// Run returns on the quit key, on end of input or when ctx is cancelled.
// When the input is a terminal it is switched to raw mode so a single key
// press is enough.
func (t *Text) Run(ctx context.Context) error {
	if f, ok := t.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			t.logger.Warn("Unable to switch terminal to raw mode", zap.Error(err))
		} else {
			defer term.Restore(fd, state)
		}
	}

	done := make(chan struct{})
	defer close(done)
	keys := make(chan keyRead, 1)
	go t.read(keys, done)

	for {
		fmt.Fprint(t.out, "Press 'q' to quit\r\n")
		select {
		case <-ctx.Done():
			t.logger.Info("Run phase interrupted")
			return nil
		case read := <-keys:
			if read.err == io.EOF {
				t.logger.Info("Input closed, quitting")
				return nil
			}
			if read.err != nil {
				return read.err
			}
			if read.key == QuitKey || read.key == interruptKey {
				return nil
			}
		}
	}
}

func (t *Text) read(keys chan<- keyRead, done <-chan struct{}) {
	buf := make([]byte, 1)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			select {
			case keys <- keyRead{key: buf[0]}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case keys <- keyRead{err: err}:
			case <-done:
			}
			return
		}
	}
}
