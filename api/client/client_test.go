package client

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"incidentdeck/api"
	"incidentdeck/config"
	"incidentdeck/core/query"
	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

func setupBackend(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: store.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "deck.db"),
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	server, err := api.NewServer(cfg, store.NewIncidentsStore(db), store.NewRunsStore(db), logger)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return ts, db
}

func seed(t *testing.T, db *store.DB, n int) {
	t.Helper()
	runs := store.NewRunsStore(db)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	for i := 0; i < n; i++ {
		err := runs.InsertRun(context.Background(), map[string]any{
			"id":                fmt.Sprintf("inc-%02d", i),
			"team_id":           "T1",
			"name":              fmt.Sprintf("incident %02d", i),
			"is_active":         true,
			"commander_user_id": "u1",
			"create_at":         base + int64(i)*1000,
		})
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestClientListIncidents(t *testing.T) {
	ts, db := setupBackend(t)
	seed(t, db, 20)
	c := New(ts.URL)

	params := query.DefaultParams("T1", 15)
	page, err := c.ListIncidents(context.Background(), params)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 20 || len(page.Items) != 15 {
		t.Fatalf("expected 15/20, got %d/%d", len(page.Items), page.TotalCount)
	}
	if page.Items[0].ID != "inc-19" {
		t.Fatalf("expected most recent first, got %s", page.Items[0].ID)
	}
}

func TestClientDetailAndSummary(t *testing.T) {
	ts, db := setupBackend(t)
	seed(t, db, 1)
	c := New(ts.URL)
	ctx := context.Background()

	detail, err := c.FetchIncidentDetail(ctx, "inc-00")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.ID != "inc-00" {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	summary, err := c.FetchIncidentSummary(ctx, "inc-00")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Name != "incident 00" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, err := c.FetchIncidentDetail(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientCommanders(t *testing.T) {
	ts, db := setupBackend(t)
	seed(t, db, 3)
	c := New(ts.URL)

	ids, err := c.ListCommanders(context.Background(), "T1")
	if err != nil {
		t.Fatalf("commanders: %v", err)
	}
	if len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("expected [u1], got %v", ids)
	}
}

// The client satisfies the controller contract end to end: a manager driving
// it against a live backend resolves pages the same way the store does.
func TestClientDrivesManager(t *testing.T) {
	ts, db := setupBackend(t)
	seed(t, db, 5)
	c := New(ts.URL)

	m := query.NewManager(context.Background(), c, query.DefaultParams("T1", 2), utils.NewLogger())
	m.Refresh()
	m.Wait()
	snap := m.Snapshot()
	if snap.Err != nil {
		t.Fatalf("fetch: %v", snap.Err)
	}
	if snap.TotalCount != 5 || len(snap.Items) != 2 {
		t.Fatalf("expected 2/5, got %d/%d", len(snap.Items), snap.TotalCount)
	}
}
