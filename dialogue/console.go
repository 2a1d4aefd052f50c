package dialogue

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Console abstracts the operator terminal so the turn loop can be driven by
// a real stdin in production and a script in tests.
type Console interface {
	// InputReady reports, without blocking, whether a line is waiting.
	InputReady() bool
	// ReadLine blocks until a line is available. Returns io.EOF when the
	// input source is closed.
	ReadLine() (string, error)
	// Print writes to the operator's screen.
	Print(s string)
	// Printf writes formatted output to the operator's screen.
	Printf(format string, args ...interface{})
}

// StdioConsole reads lines from stdin on a background goroutine so that
// InputReady can poll without blocking the turn loop.
type StdioConsole struct {
	in    io.Reader
	out   io.Writer
	lines chan string
	once  sync.Once
}

// NewStdioConsole creates a console over os.Stdin and os.Stdout.
func NewStdioConsole() *StdioConsole {
	return &StdioConsole{
		in:    os.Stdin,
		out:   os.Stdout,
		lines: make(chan string, 8),
	}
}

func (c *StdioConsole) start() {
	c.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(c.in)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				c.lines <- scanner.Text()
			}
			close(c.lines)
		}()
	})
}

func (c *StdioConsole) InputReady() bool {
	c.start()
	return len(c.lines) > 0
}

func (c *StdioConsole) ReadLine() (string, error) {
	c.start()
	line, ok := <-c.lines
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (c *StdioConsole) Print(s string) {
	fmt.Fprint(c.out, s)
}

func (c *StdioConsole) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// ScriptedConsole replays a fixed sequence of input lines and records all
// output. It reports ready input only when armed, so tests control exactly
// when an interrupt fires.
type ScriptedConsole struct {
	mu     sync.Mutex
	inputs []string
	ready  bool
	out    strings.Builder
}

// NewScriptedConsole creates a console that will return the given lines in
// order.
func NewScriptedConsole(inputs ...string) *ScriptedConsole {
	return &ScriptedConsole{inputs: inputs}
}

// Arm makes the next InputReady call report true.
func (c *ScriptedConsole) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
}

func (c *ScriptedConsole) InputReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready && len(c.inputs) > 0
}

func (c *ScriptedConsole) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	line := c.inputs[0]
	c.inputs = c.inputs[1:]
	if len(c.inputs) == 0 {
		c.ready = false
	}
	return line, nil
}

func (c *ScriptedConsole) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.WriteString(s)
}

func (c *ScriptedConsole) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(&c.out, format, args...)
}

// Output returns everything printed so far.
func (c *ScriptedConsole) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// NopConsole discards all output and never has input. It backs headless
// runs.
type NopConsole struct{}

func (NopConsole) InputReady() bool              { return false }
func (NopConsole) ReadLine() (string, error)     { return "", io.EOF }
func (NopConsole) Print(string)                  {}
func (NopConsole) Printf(string, ...interface{}) {}
