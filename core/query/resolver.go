package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

type ViewState int

const (
	StateListing ViewState = iota
	StateViewingDetail
)

var ErrSelectionActive = errors.New("an incident is already selected")

// Selection is the resolved "selected incident" slot. Exactly one of Detail
// or Summary is set, so downstream code never infers the variant by shape.
type Selection struct {
	IncidentID string
	Detail     *store.IncidentDetail
	Summary    *store.Incident
}

func (s Selection) HasDetail() bool { return s.Detail != nil }

// Incident returns the list-shaped view of the selection regardless of which
// variant was resolved.
func (s Selection) Incident() store.Incident {
	if s.Detail != nil {
		return s.Detail.Incident
	}
	if s.Summary != nil {
		return *s.Summary
	}
	return store.Incident{}
}

// Resolver owns the Listing / ViewingDetail state machine. Selecting a row
// attempts the rich detail fetch and degrades to the summary fetch on any
// failure; only when both fail does the selection stay empty and the error
// surface. Closing never refetches the list.
type Resolver struct {
	fetcher Fetcher
	logger  *utils.Logger

	mu        sync.Mutex
	state     ViewState
	selection Selection
}

func NewResolver(fetcher Fetcher, logger *utils.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger}
}

func (r *Resolver) Select(ctx context.Context, id string) error {
	r.mu.Lock()
	if r.state != StateListing {
		r.mu.Unlock()
		return ErrSelectionActive
	}
	r.mu.Unlock()

	sel := Selection{IncidentID: id}
	detail, err := r.fetcher.FetchIncidentDetail(ctx, id)
	if err == nil {
		sel.Detail = detail
	} else {
		r.logger.Printf("detail fetch for incident %s failed, falling back to summary: %v", id, err)
		summary, fallbackErr := r.fetcher.FetchIncidentSummary(ctx, id)
		if fallbackErr != nil {
			return fmt.Errorf("resolve incident %s: %w", id, fallbackErr)
		}
		sel.Summary = summary
	}

	r.mu.Lock()
	r.state = StateViewingDetail
	r.selection = sel
	r.mu.Unlock()
	return nil
}

// Close returns to the listing state unconditionally.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.state = StateListing
	r.selection = Selection{}
	r.mu.Unlock()
}

func (r *Resolver) State() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) Selection() (Selection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection, r.state == StateViewingDetail
}
