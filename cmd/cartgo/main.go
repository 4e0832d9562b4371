// Command cartgo drives dependency resolution, checkout, and builds from a
// Cartfile.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cartgo/cartgo/internal/logg"
)

type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Register(*flag.FlagSet)
	Run(env *Env, args []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(exitIOError)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run())
}

// Exit codes for cartgo invocations.
const (
	exitOK          = 0
	exitUserError   = 1
	exitIOError     = 2
	exitSubprocess  = 3
)

// Config specifies a full configuration for one cartgo invocation.
type Config struct {
	WorkingDir     string
	Args           []string
	Stdout, Stderr io.Writer
}

func (c *Config) Run() (exitCode int) {
	commands := []command{
		&resolveCommand{},
		&checkoutCommand{},
		&buildCommand{},
	}

	outLogger := log.New(c.Stdout, "", 0)
	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("cartgo manages decentralized git/binary dependencies described in a Cartfile")
		errLogger.Println()
		errLogger.Println("Usage: cartgo <command>")
		errLogger.Println()
		errLogger.Println("Commands:")
		errLogger.Println()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
	}

	if len(c.Args) < 2 {
		usage()
		return exitUserError
	}
	cmdName := c.Args[1]
	if cmdName == "-h" || cmdName == "-help" || cmdName == "--help" {
		usage()
		return exitOK
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		verbose := fs.Bool("v", false, "enable verbose logging")
		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if err := fs.Parse(c.Args[2:]); err != nil {
			return exitUserError
		}

		env := &Env{
			WorkingDir: c.WorkingDir,
			Out:        logg.New(c.Stdout, c.Stderr, *verbose),
			Verbose:    *verbose,
		}

		if err := cmd.Run(env, fs.Args()); err != nil {
			errLogger.Printf("error: %v\n", err)
			return exitCodeFor(err)
		}
		return exitOK
	}

	errLogger.Printf("cartgo: %s: no such command\n", cmdName)
	usage()
	return exitUserError
}

func resetUsage(logger *log.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		def := f.DefValue
		if def == "" {
			def = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, def)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Printf("Usage: cartgo %s %s\n", name, args)
		logger.Println()
		logger.Println(strings.TrimSpace(longHelp))
		logger.Println()
		if hasFlags {
			logger.Println("Flags:")
			logger.Println()
			logger.Print(flagBlock.String())
		}
	}
}
