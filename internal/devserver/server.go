package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"polymarket-edge/internal/model"
)

// Options tune the development server.
type Options struct {
	// FailFirst makes the first N /api requests answer 503, to exercise
	// client retries.
	FailFirst int
	// StaleAfter bounds record age when deriving is_stale.
	StaleAfter time.Duration
	Now        func() time.Time
}

// Server serves fixture data with the same routes as the edge API.
type Server struct {
	fixtures *Fixtures
	opts     Options
	logger   zerolog.Logger
	failures atomic.Int64
}

// New constructs a development server.
func New(fixtures *Fixtures, opts Options, logger zerolog.Logger) *Server {
	if fixtures == nil {
		fixtures = &Fixtures{}
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = model.DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		fixtures: fixtures,
		opts:     opts,
		logger:   logger.With().Str("component", "devserver").Logger(),
	}
	s.failures.Store(int64(opts.FailFirst))
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.injectFailures)
		r.Get("/opportunities", s.opportunities)
		r.Get("/opportunities/meta", s.opportunitiesMeta)
		r.Get("/odds/{sport}", s.odds)
		r.Get("/debug/opportunity/{id}", s.trace)
	})
	return r
}

// ListenAndServe blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Int("opportunities", len(s.fixtures.Opportunities)).Msg("serving fixtures")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.Health{Status: "ok"})
}

func (s *Server) opportunities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.annotated())
}

func (s *Server) opportunitiesMeta(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Now().UTC()
	items := s.annotated()
	feed := model.Feed{AsOf: now.Format(time.RFC3339), Items: items}

	var newest time.Time
	for _, opp := range items {
		if ts, ok := opp.Updated(); ok && ts.After(newest) {
			newest = ts
		}
	}
	if !newest.IsZero() {
		feed.StalenessSeconds = model.Float(now.Sub(newest).Seconds())
	}
	respondJSON(w, http.StatusOK, feed)
}

func (s *Server) odds(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")
	lines, ok := s.fixtures.Odds[sport]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown sport: "+sport)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (s *Server) trace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, opp := range s.annotated() {
		if opp.ID != id {
			continue
		}
		info := s.fixtures.Traces[id]
		if info == nil {
			info = map[string]any{"note": "no provenance recorded for this opportunity"}
		}
		respondJSON(w, http.StatusOK, model.Trace{Opportunity: opp, TraceInfo: info})
		return
	}
	respondError(w, http.StatusNotFound, "Opportunity not found")
}

// annotated copies the fixtures and fills is_stale where it is missing.
func (s *Server) annotated() []model.Opportunity {
	now := s.opts.Now()
	out := make([]model.Opportunity, len(s.fixtures.Opportunities))
	for i, opp := range s.fixtures.Opportunities {
		if opp.IsStale == nil {
			opp.IsStale = model.Bool(opp.Stale(now, s.opts.StaleAfter))
		}
		out[i] = opp
	}
	return out
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.failures.Load() > 0 && s.failures.Add(-1) >= 0 {
			respondError(w, http.StatusServiceUnavailable, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError mirrors FastAPI's {"detail": "..."} error body.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
