// ABOUTME: Operator console relay from standard input to a chat channel
// ABOUTME: A single reader goroutine owns stdin; relays consume its lines
package bot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrRelayBusy is returned when a relay session is already running
var ErrRelayBusy = errors.New("console relay already in progress")

// ErrConsoleClosed is returned when the input stream ends mid-relay
var ErrConsoleClosed = errors.New("console input closed")

// Console reads operator lines and hands them to relay sessions
type Console struct {
	in     io.Reader
	prompt io.Writer

	start sync.Once
	lines chan string
	busy  sync.Mutex
}

// NewConsole creates a console over in, writing prompts to prompt (may be nil).
// Reading starts on the first relay.
func NewConsole(in io.Reader, prompt io.Writer) *Console {
	if prompt == nil {
		prompt = io.Discard
	}
	return &Console{in: in, prompt: prompt, lines: make(chan string)}
}

func (c *Console) read() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	close(c.lines)
}

// Relay forwards lines to send until a line contains exit. Send errors are
// left to send to report; the relay keeps going.
func (c *Console) Relay(ctx context.Context, exit string, send func(ctx context.Context, line string) error) error {
	if !c.busy.TryLock() {
		return ErrRelayBusy
	}
	defer c.busy.Unlock()
	c.start.Do(func() { go c.read() })

	for {
		fmt.Fprint(c.prompt, "Enter message: ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-c.lines:
			if !ok {
				return ErrConsoleClosed
			}
			if strings.Contains(line, exit) {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			_ = send(ctx, line)
		}
	}
}
