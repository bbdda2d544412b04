// Package cli implements the expect command.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/expect/internal/config"
	"github.com/funvibe/expect/internal/rewrite"
)

// App is one invocation of the command. The zero value is not usable; use
// NewApp or fill in the streams.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Color enables ANSI colours in diagnostics.
	Color bool
	// Dir is where the expect.yaml lookup starts. Defaults to the working
	// directory.
	Dir string

	cfg     *config.Config
	verbose bool
}

// NewApp creates an App bound to the process streams.
func NewApp() *App {
	return &App{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Color:  useColor(os.Stderr),
	}
}

// Main runs the command with the process arguments and exits.
func Main() {
	os.Exit(NewApp().Run(os.Args[1:]))
}

func useColor(f *os.File) bool {
	if config.IsTestMode || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type command struct {
	name    string
	args    string
	summary string
	run     func(a *App, args []string) int
}

var commands []command

func init() {
	commands = []command{
		{"rewrite", "[-remote addr] [-o out] <file|->", "print the rewritten source", (*App).runRewrite},
		{"check", "[-compile] <file>...", "report rewrite errors, exit 1 if any", (*App).runCheck},
		{"tokens", "[-rewritten] <file|->", "dump the token stream", (*App).runTokens},
		{"load", "[-path dir]... [-print] <module>...", "materialize modules through the loader", (*App).runLoad},
		{"run", "[-python exe] <file> [args...]", "rewrite and execute with python", (*App).runRun},
		{"serve", "[-addr host:port]", "serve the gRPC rewrite service", (*App).runServe},
		{"cache", "stats|clean", "inspect or empty the rewrite cache", (*App).runCache},
		{"version", "", "print the version", (*App).runVersion},
		{"help", "", "show this help", (*App).runHelp},
	}
}

// Run executes args (without the program name) and returns the exit code.
func (a *App) Run(args []string) int {
	fs := flag.NewFlagSet("expect", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	strict := fs.Bool("strict", false, "reject expect used as a condition")
	configPath := fs.String("config", "", "path to expect.yaml")
	fs.BoolVar(&a.verbose, "v", false, "verbose output")
	fs.Usage = func() { a.usage(a.Stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		a.usage(a.Stderr)
		return 2
	}
	name, rest := rest[0], rest[1:]

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		a.errorf("unknown command %q (see 'expect help')", name)
		return 2
	}
	if cmd.name == "help" || cmd.name == "version" {
		return cmd.run(a, rest)
	}

	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		a.errorf("%v", err)
		return 1
	}
	if *strict {
		cfg.Strict = true
	}
	a.cfg = cfg
	return cmd.run(a, rest)
}

func (a *App) loadConfig(path string) (*config.Config, error) {
	dir := a.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}
		dir = wd
	}
	if path == "" {
		found, err := config.FindConfig(dir)
		if err != nil {
			return nil, err
		}
		if found == "" {
			a.logf("no %s found, using defaults", config.ConfigFileNames[0])
			return config.Default(dir), nil
		}
		path = found
	}
	a.logf("using config %s", path)
	return config.LoadConfig(path)
}

func (a *App) rewriteOptions() []rewrite.Option {
	return rewrite.FromConfig(a.cfg)
}

// flags creates a command flag set. -strict is accepted after the command
// name too.
func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("expect "+name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	fs.BoolVar(&a.cfg.Strict, "strict", a.cfg.Strict, "reject expect used as a condition")
	return fs
}

func (a *App) usage(w io.Writer) {
	fmt.Fprintf(w, "expect %s: rewrite `expect X else Y` in Python sources\n\n", config.Version)
	fmt.Fprintln(w, "Usage: expect [-strict] [-config expect.yaml] [-v] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %-38s %s\n", c.name, c.args, c.summary)
	}
}

func (a *App) runHelp(args []string) int {
	a.usage(a.Stdout)
	return 0
}

func (a *App) runVersion(args []string) int {
	fmt.Fprintf(a.Stdout, "expect %s\n", config.Version)
	return 0
}

func (a *App) logf(format string, args ...interface{}) {
	if a.verbose {
		fmt.Fprintf(a.Stderr, "[expect] "+format+"\n", args...)
	}
}

func (a *App) errorf(format string, args ...interface{}) {
	fmt.Fprintf(a.Stderr, "Error: "+format+"\n", args...)
}
