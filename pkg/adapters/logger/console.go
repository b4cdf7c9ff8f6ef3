// Package logger provides the Logger implementations used by the player and
// the vidplay CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/supervideo/pkg/ports"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiBlue   = "\033[34m"
)

// consoleOutput is shared by a logger and every child created from it so
// lines from the decode worker and the render loop never interleave.
type consoleOutput struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	color   bool
	started time.Time
	now     func() time.Time
}

// ConsoleLogger writes translated messages prefixed with the time elapsed
// since the logger was created. Warnings and errors go to the error stream.
type ConsoleLogger struct {
	level ports.LogLevel
	path  []string
	o     *consoleOutput
}

// NewConsole creates a console logger on stdout and stderr. Color is used
// when stderr is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	fd := os.Stderr.Fd()
	return NewConsoleWriters(level, os.Stdout, os.Stderr, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewConsoleWriters creates a console logger on arbitrary writers.
func NewConsoleWriters(level ports.LogLevel, out, errOut io.Writer, color bool) *ConsoleLogger {
	return &ConsoleLogger{
		level: level,
		o: &consoleOutput{
			out:     out,
			err:     errOut,
			color:   color,
			started: time.Now(),
			now:     time.Now,
		},
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(ports.LevelDebug, msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log(ports.LevelInfo, msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(ports.LevelWarn, msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log(ports.LevelError, msg, args) }

// WithComponent returns a child logger. Components nest, so a decoder
// logger created from the player logger prints as "player/decoder".
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	path := make([]string, len(l.path), len(l.path)+1)
	copy(path, l.path)
	return &ConsoleLogger{
		level: l.level,
		path:  append(path, component),
		o:     l.o,
	}
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	text := l10n.F(msg, args...)

	o := l.o
	o.mu.Lock()
	defer o.mu.Unlock()

	elapsed := o.now().Sub(o.started)
	stamp := fmt.Sprintf("%8.3f", elapsed.Seconds())
	tag := ""
	if len(l.path) > 0 {
		tag = "[" + strings.Join(l.path, "/") + "] "
	}

	var line string
	if o.color {
		line = ansiDim + stamp + ansiReset + " " + ansiBlue + tag + ansiReset + paint(level, text)
	} else {
		line = stamp + " " + tag + text
	}

	w := o.out
	if level >= ports.LevelWarn {
		w = o.err
	}
	fmt.Fprintln(w, line)
}

func paint(level ports.LogLevel, text string) string {
	switch level {
	case ports.LevelDebug:
		return ansiDim + text + ansiReset
	case ports.LevelWarn:
		return ansiYellow + text + ansiReset
	case ports.LevelError:
		return ansiRed + text + ansiReset
	}
	return text
}

var _ ports.Logger = (*ConsoleLogger)(nil)
