package viewmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"polymarket-edge/internal/apiclient"
	"polymarket-edge/internal/model"
)

// Window sizing for the list.
const (
	PageSize          = 50
	MaxVisible        = 1000
	LoadMoreThreshold = 10
)

// ErrDisposed is returned by Load once the list has been closed.
var ErrDisposed = errors.New("viewmodel: list disposed")

// State is a point-in-time copy of the list's fields.
type State struct {
	Loading      bool
	Error        string
	Sport        string
	MinEVPercent float64
	VisibleCount int
	Total        int
}

// List is the opportunity list view-model.
type List struct {
	fetcher apiclient.OpportunityFetcher
	logger  zerolog.Logger
	loads   singleflight.Group

	// life is cancelled by Close; in-flight loads derive from it.
	life   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	all      []model.Opportunity
	loading  bool
	errMsg   string
	filter   Filter
	visible  int
	disposed bool
}

// NewList builds a list that starts with minEVPercent as its threshold,
// typically the settings' default EV percent.
func NewList(fetcher apiclient.OpportunityFetcher, minEVPercent float64, logger zerolog.Logger) *List {
	life, cancel := context.WithCancel(context.Background())
	return &List{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "opportunity_list").Logger(),
		life:    life,
		cancel:  cancel,
		filter:  Filter{MinEVPercent: minEVPercent},
		visible: PageSize,
	}
}

// Load fetches the collection and replaces it wholesale on success. A Load
// issued while another is in flight joins it instead of sending a second
// request. ctx bounds only this caller's wait: the shared fetch keeps the
// first caller's values but is cancelled by Close alone. The loading flag is
// cleared on every path unless the list was closed meanwhile, in which case
// no state is written.
func (l *List) Load(ctx context.Context) error {
	shared := context.WithoutCancel(ctx)
	ch := l.loads.DoChan("load", func() (any, error) {
		return nil, l.load(shared)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *List) load(ctx context.Context) (err error) {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return ErrDisposed
	}
	l.loading = true
	l.errMsg = ""
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.life, cancel)
	defer stop()

	items, fetchErr := l.fetcher.FetchOpportunities(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		l.logger.Debug().Msg("discarding load result after close")
		return ErrDisposed
	}
	l.loading = false
	if fetchErr != nil {
		l.errMsg = fetchErr.Error()
		l.logger.Error().Err(fetchErr).Msg("load opportunities failed")
		return fetchErr
	}
	l.all = items
	l.logger.Info().Int("count", len(items)).Msg("opportunities loaded")
	return nil
}

// Close disposes the list: an in-flight load is cancelled and its result
// dropped. Close is idempotent.
func (l *List) Close() {
	l.mu.Lock()
	l.disposed = true
	l.mu.Unlock()
	l.cancel()
}

// FilteredSorted is the current window over the filtered, sorted collection.
func (l *List) FilteredSorted() []model.Opportunity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return FilterSort(l.all, l.filter, l.visible)
}

// AvailableSports lists AllSports plus every sport in the collection.
func (l *List) AvailableSports() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Sports(l.all)
}

// All returns the full unfiltered collection.
func (l *List) All() []model.Opportunity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Opportunity, len(l.all))
	copy(out, l.all)
	return out
}

// LoadMoreIfNeeded grows the window by PageSize (capped at MaxVisible) when
// current sits within the last LoadMoreThreshold rows of the current view.
// It reports whether the window changed.
func (l *List) LoadMoreIfNeeded(current *model.Opportunity) bool {
	if current == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items := FilterSort(l.all, l.filter, l.visible)
	index := -1
	for i, opp := range items {
		if opp.ID == current.ID {
			index = i
			break
		}
	}
	if index < 0 || index < len(items)-LoadMoreThreshold {
		return false
	}
	next := min(l.visible+PageSize, MaxVisible)
	if next == l.visible {
		return false
	}
	l.visible = next
	l.logger.Debug().Int("visible", next).Msg("window extended")
	return true
}

// SetSport selects a sport; "" or AllSports clears the filter.
func (l *List) SetSport(sport string) {
	if sport == AllSports {
		sport = ""
	}
	l.mu.Lock()
	l.filter.Sport = sport
	l.mu.Unlock()
}

// SetMinEVPercent sets the EV threshold in percent; 0 disables it.
func (l *List) SetMinEVPercent(v float64) {
	if v < 0 {
		v = 0
	}
	l.mu.Lock()
	l.filter.MinEVPercent = v
	l.mu.Unlock()
}

// Filter returns the active filter.
func (l *List) Filter() Filter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// State snapshots the scalar fields.
func (l *List) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Loading:      l.loading,
		Error:        l.errMsg,
		Sport:        l.filter.Sport,
		MinEVPercent: l.filter.MinEVPercent,
		VisibleCount: l.visible,
		Total:        len(l.all),
	}
}
