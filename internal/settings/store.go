package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrOutOfRange is returned when a value falls outside its field's bounds.
	ErrOutOfRange = errors.New("settings: value out of range")
	// ErrUnknownKey is returned for keys that are not settings.
	ErrUnknownKey = errors.New("settings: unknown key")
)

// Backend is durable flat key-value storage for settings.
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, key, value string) error
}

// Change is delivered to subscribers after a mutation has been persisted.
type Change struct {
	Key    string
	Values Values
}

// Store is the process-wide settings object. Build it once with Open and pass
// it to whatever needs it.
type Store struct {
	backend Backend
	logger  zerolog.Logger

	// writeMu serialises persist-then-publish so subscribers observe
	// mutations in the order they were stored.
	writeMu sync.Mutex
	mu      sync.RWMutex
	values  Values

	subsMu sync.Mutex
	subs   map[uint64]func(Change)
	nextID uint64
}

// Open reads every key from backend, applying defaults for missing keys.
// Unparsable values fall back to the default and out-of-range values are
// clamped; both are logged rather than failing startup.
func Open(ctx context.Context, backend Backend, logger zerolog.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("settings: backend is required")
	}
	logger = logger.With().Str("component", "settings").Logger()

	stored, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return &Store{
		backend: backend,
		logger:  logger,
		values:  decode(stored, logger),
		subs:    make(map[uint64]func(Change)),
	}, nil
}

// decode overlays stored values on the defaults. Unparsable values fall back
// to the default and out-of-range values are clamped.
func decode(stored map[string]string, logger zerolog.Logger) Values {
	values := Defaults()
	for _, field := range fields {
		raw, ok := stored[field.Key]
		if !ok {
			continue
		}
		next, err := values.with(field.Key, raw)
		if errors.Is(err, ErrOutOfRange) {
			f, _ := strconv.ParseFloat(raw, 64)
			clamped := field.Clamp(f)
			logger.Warn().Str("key", field.Key).Str("stored", raw).Float64("clamped", clamped).Msg("persisted setting out of range")
			next, err = values.with(field.Key, formatFloat(clamped))
		}
		if err != nil {
			logger.Warn().Err(err).Str("key", field.Key).Msg("ignoring unreadable setting")
			continue
		}
		values = next
	}
	return values
}

// Reload re-reads the backend and publishes a Change for every key whose
// value differs from the in-memory one. It picks up writes made by other
// processes sharing the backend.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	fresh := decode(stored, s.logger)

	current := s.Values()
	var changed []string
	for _, field := range fields {
		before, _ := current.Get(field.Key)
		after, _ := fresh.Get(field.Key)
		if before != after {
			changed = append(changed, field.Key)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	s.mu.Lock()
	s.values = fresh
	s.mu.Unlock()

	for _, key := range changed {
		s.logger.Info().Str("key", key).Msg("setting changed in backend")
		s.publish(Change{Key: key, Values: fresh})
	}
	return nil
}

// Values returns a snapshot of every setting.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *Store) FeeCushion() float64       { return s.Values().FeeCushion }
func (s *Store) DefaultEVPercent() float64 { return s.Values().DefaultEVPercent }
func (s *Store) DeveloperMode() bool       { return s.Values().DeveloperMode }

// RefreshIntervalSeconds is the auto-refresh period in seconds.
func (s *Store) RefreshIntervalSeconds() float64 { return s.Values().RefreshIntervalSeconds }

func (s *Store) SetFeeCushion(ctx context.Context, v float64) error {
	return s.Set(ctx, KeyFeeCushion, formatFloat(v))
}

func (s *Store) SetRefreshIntervalSeconds(ctx context.Context, v float64) error {
	return s.Set(ctx, KeyRefreshInterval, formatFloat(v))
}

func (s *Store) SetDefaultEVPercent(ctx context.Context, v float64) error {
	return s.Set(ctx, KeyDefaultEVPercent, formatFloat(v))
}

func (s *Store) SetDeveloperMode(ctx context.Context, on bool) error {
	return s.Set(ctx, KeyDeveloperMode, strconv.FormatBool(on))
}

// Get returns one setting in its persisted form.
func (s *Store) Get(key string) (string, error) {
	return s.Values().Get(key)
}

// Set validates, persists and publishes one setting given in its persisted
// form. When persistence fails the in-memory value is left unchanged.
func (s *Store) Set(ctx context.Context, key, raw string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.setLocked(ctx, key, raw)
}

// setLocked is Set with writeMu already held.
func (s *Store) setLocked(ctx context.Context, key, raw string) error {
	next, err := s.Values().with(key, raw)
	if err != nil {
		return err
	}
	persisted, err := next.Get(key)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, key, persisted); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}

	s.mu.Lock()
	s.values = next
	s.mu.Unlock()

	s.logger.Debug().Str("key", key).Str("value", persisted).Msg("setting updated")
	s.publish(Change{Key: key, Values: next})
	return nil
}

// Adjust moves a numeric setting by steps increments of its Step, clamped to
// range, or flips a toggle when steps is odd. It persists like Set.
func (s *Store) Adjust(ctx context.Context, key string, steps int) error {
	field, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.Values()
	if field.Kind == KindToggle {
		if steps%2 == 0 {
			return nil
		}
		return s.setLocked(ctx, key, strconv.FormatBool(!current.DeveloperMode))
	}
	v, _ := current.Number(key)
	return s.setLocked(ctx, key, formatFloat(field.Nudge(v, steps)))
}

// Subscribe registers fn for every future change and returns a func that
// removes it. fn runs synchronously on the mutating goroutine and must not
// call Set.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) publish(change Change) {
	s.subsMu.Lock()
	handlers := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range handlers {
		fn(change)
	}
}
