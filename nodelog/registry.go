package nodelog

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// RootName is the name printed for the root logger.
const RootName = "root"

// Sink is a log output destination (console stream or file).
type Sink struct {
	name string
	w    io.Writer
}

// NewSink returns a Sink writing to w. Writes are serialized and flushed per line.
func NewSink(name string, w io.Writer) *Sink {
	return &Sink{name: name, w: newLineWriter(w)}
}

// Name returns the sink label (e.g. "console", a file path).
func (s *Sink) Name() string { return s.name }

// entry is the mutable configuration behind one named logger.
type entry struct {
	name      string
	level     slog.LevelVar
	hasLevel  bool
	propagate bool
	sinks     []*Sink
}

// Registry owns the named loggers of a process. Loggers read their level and sinks from the registry
// at write time, so ForceVisible affects loggers handed out earlier.
type Registry struct {
	mu      sync.RWMutex
	root    *entry
	entries map[string]*entry
	order   []string
	rank    string
	console *Sink
	now     func() time.Time
}

// NewRegistry returns an empty Registry whose root logger is at Info level with no sinks.
func NewRegistry() *Registry {
	r := &Registry{
		root:    &entry{name: RootName, hasLevel: true},
		entries: make(map[string]*entry),
		rank:    UnknownRank,
		now:     time.Now,
	}
	r.root.level.Set(slog.LevelInfo)
	return r
}

// EntryOption configures a logger at registration.
type EntryOption func(*entry)

// WithLevel sets the logger's own level instead of inheriting the root level.
func WithLevel(level slog.Level) EntryOption {
	return func(e *entry) {
		e.level.Set(level)
		e.hasLevel = true
	}
}

// WithSink attaches a sink to the logger.
func WithSink(s *Sink) EntryOption {
	return func(e *entry) { e.sinks = append(e.sinks, s) }
}

// WithoutPropagation stops the logger from also writing to the root sinks.
func WithoutPropagation() EntryOption {
	return func(e *entry) { e.propagate = false }
}

// Register returns the logger named name, creating it on first use. Options apply only on creation.
// By default a logger inherits the root level and writes to the root sinks.
func (r *Registry) Register(name string, opts ...EntryOption) *slog.Logger {
	if name == "" || name == RootName {
		return slog.New(&handler{reg: r, ent: r.root})
	}
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{name: name, propagate: true}
		for _, opt := range opts {
			opt(e)
		}
		r.entries[name] = e
		r.order = append(r.order, name)
	}
	r.mu.Unlock()
	return slog.New(&handler{reg: r, ent: e})
}

// Root returns the root logger.
func (r *Registry) Root() *slog.Logger {
	return r.Register(RootName)
}

// Names returns registered logger names in registration order (root excluded).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Level returns the effective level of the named logger.
func (r *Registry) Level(name string) slog.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		e = r.root
	}
	return r.levelLocked(e)
}

// SinkCount returns how many sinks the named logger owns (root sinks not counted).
func (r *Registry) SinkCount(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return len(e.sinks)
	}
	return 0
}

// ForceVisible raises every registered logger to Info and attaches the console sink to loggers
// without a sink of their own. Loggers registered later are not affected.
// Returns the number of loggers updated.
func (r *Registry) ForceVisible() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		e := r.entries[name]
		e.level.Set(slog.LevelInfo)
		e.hasLevel = true
		if len(e.sinks) == 0 && r.console != nil {
			e.sinks = append(e.sinks, r.console)
		}
	}
	return len(r.order)
}

// bind installs the node identity and the root sinks. Calling it again appends more root sinks.
func (r *Registry) bind(rank string, now func() time.Time, console *Sink, sinks ...*Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rank = rank
	if now != nil {
		r.now = now
	}
	r.console = console
	r.root.level.Set(slog.LevelInfo)
	r.root.sinks = append(r.root.sinks, sinks...)
}

func (r *Registry) levelLocked(e *entry) slog.Level {
	if e.hasLevel {
		return e.level.Level()
	}
	return r.root.level.Level()
}

// target returns everything a handler needs to emit one record for e.
func (r *Registry) target(e *entry) (rank string, now time.Time, sinks []*Sink) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks = slices.Clone(e.sinks)
	if e != r.root && e.propagate {
		for _, s := range r.root.sinks {
			if !slices.Contains(sinks, s) {
				sinks = append(sinks, s)
			}
		}
	}
	return r.rank, r.now(), sinks
}
