package console

import (
	"context"
	"fmt"

	"github.com/eiannone/keyboard"
	"github.com/sirupsen/logrus"

	"interceptproxy/internal/display"
	"interceptproxy/internal/gate"
)

// Single-key operator commands, per spec.md §4.5.
const (
	KeyToggleMode = 's'
	KeyForward    = 'f'
	KeyDrop       = 'd'
)

// Console reads single keypresses from the terminal in cbreak mode and
// drives the Interception Gate's mode and per-request decisions.
type Console struct {
	Gate *gate.Gate
	Sink display.Sink
	Log  *logrus.Logger
}

// New builds a Console bound to g, emitting operator-facing events to sink.
func New(g *gate.Gate, sink display.Sink, log *logrus.Logger) *Console {
	return &Console{Gate: g, Sink: sink, Log: log}
}

// Run opens the keyboard and processes keys until ctx is cancelled or the
// operator presses Ctrl+C. It restores the terminal before returning on
// every exit path, matching the teacher's defer keyboard.Close() pattern,
// and reports a restore failure through its return value instead of
// swallowing it, so a caller joining it with another shutdown error (see
// proxyserver.Server.Run) sees it.
func (c *Console) Run(ctx context.Context) (err error) {
	events, openErr := keyboard.GetKeys(10)
	if openErr != nil {
		return fmt.Errorf("console: failed to open keyboard: %w", openErr)
	}
	defer func() {
		if cerr := keyboard.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("console: failed to restore terminal: %w", cerr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.Sink.Shutdown()
			return nil
		case event, ok := <-events:
			if !ok {
				c.Sink.Shutdown()
				return nil
			}
			if event.Err != nil {
				c.Log.WithError(event.Err).Debug("keyboard read error")
				continue
			}
			if c.handleKey(event) {
				c.Sink.Shutdown()
				return nil
			}
		}
	}
}

// handleKey applies one keypress and reports whether the console should
// stop (Ctrl+C).
func (c *Console) handleKey(event keyboard.KeyEvent) bool {
	if event.Key == keyboard.KeyCtrlC {
		return true
	}

	switch event.Rune {
	case KeyToggleMode:
		c.toggleMode()
	case KeyForward:
		c.forwardOne()
	case KeyDrop:
		c.dropOne()
	}
	return false
}

func (c *Console) toggleMode() {
	if c.Gate.Mode() == gate.Auto {
		c.Gate.SetManual()
		c.Sink.ModeChanged(display.Manual, 0)
		return
	}
	drained := c.Gate.SetAuto()
	c.Sink.ModeChanged(display.Auto, drained)
}

// forwardOne mirrors original_source/netzy-proxy-https.py's keyboard_handler:
// "f" only acts while in Manual mode; pressed on an empty queue it
// announces QueueEmpty instead of forwarding anything, and in Auto mode it
// is a silent no-op (there is never anything queued to act on).
func (c *Console) forwardOne() {
	if c.Gate.Mode() != gate.Manual {
		return
	}
	remaining := c.Gate.ForwardOne()
	if remaining < 0 {
		c.Sink.QueueEmpty()
		return
	}
	c.Sink.Decision(display.Forward, remaining)
}

// dropOne is "d"'s counterpart to forwardOne, with the same empty-queue and
// Auto-mode handling.
func (c *Console) dropOne() {
	if c.Gate.Mode() != gate.Manual {
		return
	}
	remaining := c.Gate.DropOne()
	if remaining < 0 {
		c.Sink.QueueEmpty()
		return
	}
	c.Sink.Decision(display.Drop, remaining)
}
