package query

import (
	"context"
	"errors"
	"testing"

	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

func TestSelectResolvesDetail(t *testing.T) {
	fetcher := &fakeFetcher{
		detail: &store.IncidentDetail{
			Incident:    store.Incident{ID: "inc-1", Name: "outage"},
			Description: "full detail",
		},
	}
	r := NewResolver(fetcher, utils.NewLogger())

	if err := r.Select(context.Background(), "inc-1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if r.State() != StateViewingDetail {
		t.Fatal("expected viewing-detail state")
	}
	sel, ok := r.Selection()
	if !ok || !sel.HasDetail() || sel.Detail.Description != "full detail" {
		t.Fatalf("expected detail selection, got %+v", sel)
	}
	if sel.Incident().Name != "outage" {
		t.Fatalf("expected list-shape access, got %+v", sel.Incident())
	}
}

func TestSelectFallsBackToSummary(t *testing.T) {
	fetcher := &fakeFetcher{
		detailErr: errors.New("decode error"),
		summary:   &store.Incident{ID: "inc-1", Name: "outage"},
	}
	r := NewResolver(fetcher, utils.NewLogger())

	if err := r.Select(context.Background(), "inc-1"); err != nil {
		t.Fatalf("select with fallback: %v", err)
	}
	sel, ok := r.Selection()
	if !ok || sel.HasDetail() || sel.Summary == nil {
		t.Fatalf("expected summary selection, got %+v", sel)
	}
	if sel.Incident().Name != "outage" {
		t.Fatalf("expected summary shape, got %+v", sel.Incident())
	}
}

func TestSelectFailsWhenBothFetchesFail(t *testing.T) {
	fetcher := &fakeFetcher{
		detailErr:  errors.New("network error"),
		summaryErr: errors.New("not found"),
	}
	r := NewResolver(fetcher, utils.NewLogger())

	err := r.Select(context.Background(), "inc-1")
	if err == nil {
		t.Fatal("expected error when both fetches fail")
	}
	if r.State() != StateListing {
		t.Fatal("failed selection must stay in listing state")
	}
	if _, ok := r.Selection(); ok {
		t.Fatal("failed selection must not populate the slot")
	}
}

func TestCloseClearsSelectionWithoutRefetch(t *testing.T) {
	fetcher := &fakeFetcher{
		detail: &store.IncidentDetail{Incident: store.Incident{ID: "inc-1"}},
	}
	r := NewResolver(fetcher, utils.NewLogger())
	if err := r.Select(context.Background(), "inc-1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	r.Close()
	if r.State() != StateListing {
		t.Fatal("expected listing state after close")
	}
	if _, ok := r.Selection(); ok {
		t.Fatal("expected cleared selection after close")
	}
	if calls := fetcher.listCalls(); len(calls) != 0 {
		t.Fatalf("close must not refetch the list, saw %d fetches", len(calls))
	}
}

func TestSelectWhileViewingRejected(t *testing.T) {
	fetcher := &fakeFetcher{
		detail: &store.IncidentDetail{Incident: store.Incident{ID: "inc-1"}},
	}
	r := NewResolver(fetcher, utils.NewLogger())
	if err := r.Select(context.Background(), "inc-1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := r.Select(context.Background(), "inc-2"); !errors.Is(err, ErrSelectionActive) {
		t.Fatalf("expected ErrSelectionActive, got %v", err)
	}
}
