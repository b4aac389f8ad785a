// Package session keeps the wizard state of every active student in
// memory. Nothing is persisted: a restart discards all sessions.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/i18n"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one student's progress. State is a copy; edits
// to it do not reach the registry.
type Session struct {
	ID        string      `json:"id"`
	Locale    string      `json:"locale"`
	State     coach.State `json:"state"`
	CreatedAt time.Time   `json:"createdAt"`
	LastSeen  time.Time   `json:"lastSeen"`
}

type entry struct {
	locale    string
	state     coach.State
	createdAt time.Time
	lastSeen  time.Time
}

func (e *entry) snapshot(id string) Session {
	return Session{
		ID:        id,
		Locale:    e.locale,
		State:     e.state.Clone(),
		CreatedAt: e.createdAt,
		LastSeen:  e.lastSeen,
	}
}

// Registry maps session ids to states. Each session is still updated one
// action at a time; the lock only protects the map shared by all hosts.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	coaches  map[string]*coach.Coach

	catalog *i18n.Catalog
	opts    []coach.Option
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithCoachOptions is applied to every per-locale Coach.
func WithCoachOptions(opts ...coach.Option) Option {
	return func(r *Registry) { r.opts = append(r.opts, opts...) }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns an empty registry using the embedded catalog.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: map[string]*entry{},
		coaches:  map[string]*coach.Coach{},
		catalog:  i18n.Default(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Coach returns the engine for the locale closest to lang.
func (r *Registry) Coach(lang string) *coach.Coach {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coachLocked(r.catalog.Match(lang))
}

func (r *Registry) coachLocked(locale string) *coach.Coach {
	c, ok := r.coaches[locale]
	if !ok {
		c = coach.New(r.catalog.Localizer(locale), r.opts...)
		r.coaches[locale] = c
	}
	return c
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// Open returns the session id, creating it on step 1 when absent. An
// empty id gets a new random one. lang only applies to new sessions.
func (r *Registry) Open(id, lang string) Session {
	if id == "" {
		id = NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{
			locale:    r.catalog.Match(lang),
			state:     coach.NewState(),
			createdAt: now,
		}
		r.sessions[id] = e
		r.log.Debug("session opened", zap.String("session", id), zap.String("locale", e.locale))
	}
	e.lastSeen = now
	return e.snapshot(id)
}

// Get returns the session without touching its idle timer.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return e.snapshot(id), nil
}

// Apply runs one action through the session's Coach and stores the
// resulting state.
func (r *Registry) Apply(id string, a coach.Action) (Session, coach.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, coach.Outcome{}, ErrNotFound
	}
	before := e.state.Step
	next, out := r.coachLocked(e.locale).Apply(e.state, a)
	e.state = next
	e.lastSeen = r.now()
	if out.Kind == coach.OutcomeRefused {
		r.log.Info("guardrail refusal", zap.String("session", id), zap.Stringer("step", before))
	}
	if next.Step != before {
		r.log.Debug("step changed", zap.String("session", id),
			zap.Stringer("from", before), zap.Stringer("to", next.Step))
	}
	return e.snapshot(id), out, nil
}

// SetLocale switches the language of an existing session.
func (r *Registry) SetLocale(id, lang string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	e.locale = r.catalog.Match(lang)
	e.lastSeen = r.now()
	return e.snapshot(id), nil
}

// Drop forgets a session and reports whether it existed.
func (r *Registry) Drop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	n := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.log.Info("expired idle sessions", zap.Int("count", n), zap.Int("live", r.Len()))
			}
		}
	}
}
