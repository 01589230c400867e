package query

import (
	"context"
	"sync"
	"time"

	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

const defaultSearchDebounce = 300 * time.Millisecond

// Snapshot is what the presenter renders: the parameters in effect, the last
// resolved page, and the last fetch error. A failed fetch keeps the previous
// items so the dashboard degrades instead of blanking.
type Snapshot struct {
	Params     Params
	Items      []store.Incident
	TotalCount int
	Err        error
}

// Manager owns the fetch parameters and reconciles user actions into list
// fetches. Each mutator produces a new Params value; when the value changed,
// exactly one fetch is scheduled. Completions carry a sequence token so a
// stale response can never overwrite a newer one.
type Manager struct {
	fetcher  Fetcher
	profiles ProfileResolver
	logger   *utils.Logger
	debounce time.Duration
	ctx      context.Context

	mu          sync.Mutex
	params      Params
	items       []store.Incident
	total       int
	err         error
	seq         uint64
	searchTimer *time.Timer
	onChange    func(Snapshot)

	wg sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithSearchDebounce overrides the quiet window for search-term coalescing.
func WithSearchDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

func WithProfileResolver(r ProfileResolver) ManagerOption {
	return func(m *Manager) { m.profiles = r }
}

// WithOnChange registers the presenter callback invoked after every resolved
// fetch. It runs outside the manager lock.
func WithOnChange(fn func(Snapshot)) ManagerOption {
	return func(m *Manager) { m.onChange = fn }
}

func NewManager(ctx context.Context, fetcher Fetcher, initial Params, logger *utils.Logger, opts ...ManagerOption) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	m := &Manager{
		fetcher:  fetcher,
		logger:   logger,
		debounce: defaultSearchDebounce,
		ctx:      ctx,
		params:   initial,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh forces a fetch with the current parameters.
func (m *Manager) Refresh() {
	m.mu.Lock()
	m.scheduleFetchLocked()
	m.mu.Unlock()
}

func (m *Manager) SetTeam(teamID string) {
	m.applyAndFetch(func(p Params) (Params, bool) { return p.withTeam(teamID) })
}

func (m *Manager) SetStatusFilter(status string) {
	m.applyAndFetch(func(p Params) (Params, bool) { return p.withStatus(status) })
}

func (m *Manager) SetCommanderFilter(userID string) {
	m.applyAndFetch(func(p Params) (Params, bool) { return p.withCommander(userID) })
}

func (m *Manager) SetPage(page int) {
	m.applyAndFetch(func(p Params) (Params, bool) { return p.withPage(page) })
}

func (m *Manager) ActivateColumn(col SortColumn) {
	m.applyAndFetch(func(p Params) (Params, bool) { return p.withActivatedColumn(col) })
}

// SetSearchTerm coalesces rapid successive calls: the term only takes effect
// after the quiet window elapses, and only the last observed value counts.
func (m *Manager) SetSearchTerm(term string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchTimer != nil {
		m.searchTimer.Stop()
	}
	m.searchTimer = time.AfterFunc(m.debounce, func() {
		m.applyAndFetch(func(p Params) (Params, bool) { return p.withSearchTerm(term) })
	})
}

func (m *Manager) applyAndFetch(transition func(Params) (Params, bool)) {
	m.mu.Lock()
	next, changed := transition(m.params)
	if !changed {
		m.mu.Unlock()
		return
	}
	m.params = next
	m.scheduleFetchLocked()
	m.mu.Unlock()
}

func (m *Manager) scheduleFetchLocked() {
	m.seq++
	token := m.seq
	params := m.params
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		page, err := m.fetcher.ListIncidents(m.ctx, params)

		m.mu.Lock()
		if token != m.seq {
			// A newer fetch was scheduled while this one was in flight.
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.err = err
			m.logger.Errorf("list incidents for team %s: %v", params.TeamID, err)
		} else {
			m.items = page.Items
			m.total = page.TotalCount
			m.err = nil
		}
		cb := m.onChange
		snap := m.snapshotLocked()
		m.mu.Unlock()
		if cb != nil {
			cb(snap)
		}
	}()
}

func (m *Manager) snapshotLocked() Snapshot {
	items := make([]store.Incident, len(m.items))
	copy(items, m.items)
	return Snapshot{
		Params:     m.params,
		Items:      items,
		TotalCount: m.total,
		Err:        m.err,
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Commanders lists the team's commander user ids mapped through the profile
// resolver. Ids the resolver cannot serve fall back to a bare profile rather
// than dropping the commander from the filter.
func (m *Manager) Commanders(ctx context.Context) ([]Commander, error) {
	m.mu.Lock()
	teamID := m.params.TeamID
	m.mu.Unlock()
	ids, err := m.fetcher.ListCommanders(ctx, teamID)
	if err != nil {
		return nil, err
	}
	commanders := make([]Commander, 0, len(ids))
	for _, id := range ids {
		c := Commander{UserID: id, Profile: Profile{UserID: id}}
		if m.profiles != nil {
			if profile, err := m.profiles.Resolve(ctx, id); err == nil {
				c.Profile = profile
			} else {
				m.logger.Errorf("resolve profile %s: %v", id, err)
			}
		}
		commanders = append(commanders, c)
	}
	return commanders, nil
}

// Wait blocks until every scheduled fetch has completed. Outstanding debounce
// timers are not waited on.
func (m *Manager) Wait() {
	m.wg.Wait()
}
