package query

import "testing"

func TestActivateColumnTogglesOrder(t *testing.T) {
	p := DefaultParams("T1", 15)
	p, changed := p.withActivatedColumn(SortName)
	if !changed || p.Sort != SortName || p.Order != OrderAsc {
		t.Fatalf("expected name/asc, got %s/%s", p.Sort, p.Order)
	}
	// Consecutive activations of the same column alternate strictly.
	for i, want := range []SortOrder{OrderDesc, OrderAsc, OrderDesc, OrderAsc} {
		var ok bool
		p, ok = p.withActivatedColumn(SortName)
		if !ok || p.Order != want {
			t.Fatalf("activation %d: expected %s, got %s", i, want, p.Order)
		}
	}
}

func TestActivateColumnDefaults(t *testing.T) {
	cases := []struct {
		col  SortColumn
		want SortOrder
	}{
		{SortName, OrderAsc},
		{SortStatus, OrderAsc},
		{SortCreateAt, OrderDesc},
		{SortEndAt, OrderDesc},
	}
	for _, tc := range cases {
		p := DefaultParams("T1", 15)
		p.Sort = ""
		next, changed := p.withActivatedColumn(tc.col)
		if !changed || next.Sort != tc.col || next.Order != tc.want {
			t.Fatalf("column %s: expected default %s, got %s", tc.col, tc.want, next.Order)
		}
	}
}

func TestActivateInvalidColumn(t *testing.T) {
	p := DefaultParams("T1", 15)
	if _, changed := p.withActivatedColumn("bogus"); changed {
		t.Fatal("invalid column must not change params")
	}
}

func TestFilterChangesResetPage(t *testing.T) {
	p := DefaultParams("T1", 15)
	p.Page = 3

	if next, changed := p.withSearchTerm("db"); !changed || next.Page != 0 {
		t.Fatalf("search change: expected page reset, got %d", next.Page)
	}
	if next, changed := p.withStatus("active"); !changed || next.Page != 0 {
		t.Fatalf("status change: expected page reset, got %d", next.Page)
	}
	if next, changed := p.withCommander("u1"); !changed || next.Page != 0 {
		t.Fatalf("commander change: expected page reset, got %d", next.Page)
	}
	if next, changed := p.withTeam("T2"); !changed || next.Page != 0 {
		t.Fatalf("team change: expected page reset, got %d", next.Page)
	}
}

func TestNoOpTransitionsReportUnchanged(t *testing.T) {
	p := DefaultParams("T1", 15)
	p.SearchTerm = "db"
	p.Status = "active"
	p.CommanderUserID = "u1"
	p.Page = 2

	if _, changed := p.withTeam("T1"); changed {
		t.Fatal("same team must not trigger a fetch")
	}
	if _, changed := p.withSearchTerm("  db  "); changed {
		t.Fatal("same trimmed search term must not trigger a fetch")
	}
	if _, changed := p.withStatus("active"); changed {
		t.Fatal("same status must not trigger a fetch")
	}
	if _, changed := p.withCommander("u1"); changed {
		t.Fatal("same commander must not trigger a fetch")
	}
	if _, changed := p.withPage(2); changed {
		t.Fatal("same page must not trigger a fetch")
	}
	if _, changed := p.withPage(-1); changed {
		t.Fatal("negative page must not trigger a fetch")
	}
}

func TestStoreQueryMapping(t *testing.T) {
	p := Params{
		TeamID:          "T1",
		Page:            2,
		PerPage:         25,
		Sort:            SortEndAt,
		Order:           OrderAsc,
		SearchTerm:      "db",
		Status:          "ended",
		CommanderUserID: "u1",
	}
	q := p.StoreQuery()
	if q.TeamID != "T1" || q.Page != 2 || q.PerPage != 25 || q.Sort != "end_at" ||
		q.Order != "asc" || q.SearchTerm != "db" || q.Status != "ended" || q.CommanderUserID != "u1" {
		t.Fatalf("unexpected store query: %+v", q)
	}
}
