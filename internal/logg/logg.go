// Package logg is cartgo's minimal logging facade: two stdlib *log.Logger
// instances, one gated by a verbose flag, mirroring the outLogger/errLogger
// pair of a plain flag-based CLI rather than adopting a structured-logging
// library.
package logg

import (
	"io"
	"log"
)

// Logger writes plain progress lines to Out and errors to Err, with Verbose
// output gated behind a flag set at construction.
type Logger struct {
	out, err *log.Logger
	verbose  bool
}

// New builds a Logger writing to out/err with no timestamp/prefix
// decoration: log.New(out, "", 0).
func New(out, err io.Writer, verbose bool) *Logger {
	return &Logger{
		out:     log.New(out, "", 0),
		err:     log.New(err, "", 0),
		verbose: verbose,
	}
}

// Logln writes a progress line.
func (l *Logger) Logln(v ...interface{}) { l.out.Println(v...) }

// Logf writes a formatted progress line.
func (l *Logger) Logf(format string, v ...interface{}) { l.out.Printf(format, v...) }

// Verboseln writes a progress line only when verbose output is enabled.
func (l *Logger) Verboseln(v ...interface{}) {
	if l.verbose {
		l.out.Println(v...)
	}
}

// Verbosef writes a formatted progress line only when verbose output is
// enabled.
func (l *Logger) Verbosef(format string, v ...interface{}) {
	if l.verbose {
		l.out.Printf(format, v...)
	}
}

// Errorln writes an error line to Err.
func (l *Logger) Errorln(v ...interface{}) { l.err.Println(v...) }

// Errorf writes a formatted error line to Err.
func (l *Logger) Errorf(format string, v ...interface{}) { l.err.Printf(format, v...) }
