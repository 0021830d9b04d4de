package nodelog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultLogDir is the directory of per-node log files unless Config.LogDir is set.
const DefaultLogDir = "logs"

// DefaultFileNameFormat is the per-node log file name; %s is the node rank.
const DefaultFileNameFormat = "debug_node_%s.log"

// Config controls Setup. Zero values fall back to the defaults noted per field.
type Config struct {
	Stdout io.Writer // default os.Stdout
	Stderr io.Writer // default os.Stderr

	LogDir         string // default DefaultLogDir
	FileNameFormat string // default DefaultFileNameFormat

	// LookupEnv reads the node rank. Default os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// SetProcessEnv exports ProcessEnv into this process (inherited by children) via Setenv.
	SetProcessEnv bool
	// Setenv is used when SetProcessEnv is true. Default os.Setenv.
	Setenv func(key, value string) error
	// SetDefault installs the root logger as slog.Default.
	SetDefault bool
	// Registry receives the root sinks; loggers registered in it before Setup are forced visible.
	// Default is a new Registry.
	Registry *Registry
	// Now is the clock for printer prefixes. Default time.Now.
	Now func() time.Time
	// Quiet suppresses the setup banner.
	Quiet bool
}

// DefaultConfig returns the process-wide configuration: real stdio, env export and slog.Default replacement.
func DefaultConfig() Config {
	return Config{
		SetProcessEnv: true,
		SetDefault:    true,
	}
}

// Logging is the configured logging context of a node. Create with Setup; release with Close.
type Logging struct {
	node     Node
	stdout   *lineWriter
	stderr   *lineWriter
	file     *os.File
	filePath string
	registry *Registry
	printer  *Printer
}

// Setup configures logging for this node. Steps run in order: line-buffered stdio, env export,
// rank lookup, root handler with console and file sinks, printer, forcing registered loggers visible.
// Failing to create the log file is returned as an error; there is no fallback sink.
// Setup is not idempotent: calling it again with the same Registry adds another set of root sinks.
func Setup(cfg Config) (*Logging, error) {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir
	}
	if cfg.FileNameFormat == "" {
		cfg.FileNameFormat = DefaultFileNameFormat
	}
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}
	if cfg.Setenv == nil {
		cfg.Setenv = os.Setenv
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Logging{
		stdout:   newLineWriter(cfg.Stdout),
		stderr:   newLineWriter(cfg.Stderr),
		registry: cfg.Registry,
	}
	if cfg.SetProcessEnv {
		if err := applyEnv(cfg.Setenv); err != nil {
			return nil, fmt.Errorf("nodelog: export env: %w", err)
		}
	}
	l.node = ReadNode(cfg.LookupEnv)

	l.filePath = filepath.Join(cfg.LogDir, fmt.Sprintf(cfg.FileNameFormat, l.node.Rank))
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0o750); err != nil {
		return nil, fmt.Errorf("nodelog: create log dir: %w", err)
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G304 -- path from config
	if err != nil {
		return nil, fmt.Errorf("nodelog: open log file: %w", err)
	}
	l.file = f
	console := &Sink{name: "console", w: l.stdout}
	l.registry.bind(l.node.Rank, cfg.Now, console, console, &Sink{name: l.filePath, w: newLineWriter(f)})
	if cfg.SetDefault {
		slog.SetDefault(l.registry.Root())
	}

	l.printer = &Printer{node: l.node, out: l.stdout, now: cfg.Now}
	l.registry.ForceVisible()

	if !cfg.Quiet {
		l.printer.Println("Enhanced logging configured for multi-node training")
		l.printer.Println("Node rank:", l.node.Rank)
		unbuffered, _ := cfg.LookupEnv("PYTHONUNBUFFERED")
		l.printer.Println("Unbuffered output:", unbuffered)
	}
	return l, nil
}

// Node returns the node identity.
func (l *Logging) Node() Node { return l.node }

// Root returns the root logger.
func (l *Logging) Root() *slog.Logger { return l.registry.Root() }

// Logger registers (or returns) the named logger. It inherits the root level and sinks.
func (l *Logging) Logger(name string, opts ...EntryOption) *slog.Logger {
	return l.registry.Register(name, opts...)
}

// Registry returns the logger registry.
func (l *Logging) Registry() *Registry { return l.registry }

// Printer returns the node-tagged printer.
func (l *Logging) Printer() *Printer { return l.printer }

// Stdout returns the line-buffered stdout writer. Route other stdout writes through it.
func (l *Logging) Stdout() io.Writer { return l.stdout }

// Stderr returns the line-buffered stderr writer.
func (l *Logging) Stderr() io.Writer { return l.stderr }

// LogFile returns the per-node log file path.
func (l *Logging) LogFile() string { return l.filePath }

// Environ returns os.Environ() with ProcessEnv applied, for subprocesses started by this node.
func (l *Logging) Environ() []string { return Environ(os.Environ()) }

// Close flushes stdio and closes the log file.
func (l *Logging) Close() error {
	errs := []error{l.stdout.Flush(), l.stderr.Flush()}
	if l.file != nil {
		errs = append(errs, l.file.Close())
		l.file = nil
	}
	return errors.Join(errs...)
}
