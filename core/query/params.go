package query

import (
	"strings"

	"incidentdeck/core/store"
)

type SortColumn string

const (
	SortName     SortColumn = store.SortByName
	SortStatus   SortColumn = store.SortByStatus
	SortCreateAt SortColumn = store.SortByCreateAt
	SortEndAt    SortColumn = store.SortByEndAt
)

type SortOrder string

const (
	OrderAsc  SortOrder = store.OrderAsc
	OrderDesc SortOrder = store.OrderDesc
)

// defaultOrder is the order a freshly activated column starts in: text-like
// columns ascending, time-based columns descending.
func (c SortColumn) defaultOrder() SortOrder {
	switch c {
	case SortName, SortStatus:
		return OrderAsc
	default:
		return OrderDesc
	}
}

func (c SortColumn) valid() bool {
	switch c {
	case SortName, SortStatus, SortCreateAt, SortEndAt:
		return true
	}
	return false
}

// Params is the canonical description of which filtered, sorted page of
// incidents is displayed. It is a value: every transition below returns a new
// Params and reports whether a refetch is needed.
type Params struct {
	TeamID          string
	Page            int
	PerPage         int
	Sort            SortColumn
	Order           SortOrder
	SearchTerm      string
	Status          string
	CommanderUserID string
}

func DefaultParams(teamID string, perPage int) Params {
	return Params{
		TeamID:  teamID,
		PerPage: perPage,
		Sort:    SortCreateAt,
		Order:   OrderDesc,
	}
}

// Filter changes land the operator back on the first page; an empty page
// after narrowing a filter from page 3 is never what anyone wanted.

func (p Params) withTeam(teamID string) (Params, bool) {
	if teamID == p.TeamID {
		return p, false
	}
	p.TeamID = teamID
	p.Page = 0
	return p, true
}

func (p Params) withSearchTerm(term string) (Params, bool) {
	term = strings.TrimSpace(term)
	if term == p.SearchTerm {
		return p, false
	}
	p.SearchTerm = term
	p.Page = 0
	return p, true
}

func (p Params) withStatus(status string) (Params, bool) {
	if status == p.Status {
		return p, false
	}
	p.Status = status
	p.Page = 0
	return p, true
}

func (p Params) withCommander(userID string) (Params, bool) {
	if userID == p.CommanderUserID {
		return p, false
	}
	p.CommanderUserID = userID
	p.Page = 0
	return p, true
}

func (p Params) withPage(page int) (Params, bool) {
	if page < 0 || page == p.Page {
		return p, false
	}
	p.Page = page
	return p, true
}

// withActivatedColumn applies the column-header rule: re-activating the
// current sort column flips the order, activating a new column switches to it
// with its per-column default order.
func (p Params) withActivatedColumn(col SortColumn) (Params, bool) {
	if !col.valid() {
		return p, false
	}
	if p.Sort == col {
		if p.Order == OrderAsc {
			p.Order = OrderDesc
		} else {
			p.Order = OrderAsc
		}
		return p, true
	}
	p.Sort = col
	p.Order = col.defaultOrder()
	return p, true
}

// StoreQuery converts the display parameters to a store list query.
func (p Params) StoreQuery() store.ListQuery {
	return store.ListQuery{
		TeamID:          p.TeamID,
		Page:            p.Page,
		PerPage:         p.PerPage,
		Sort:            string(p.Sort),
		Order:           string(p.Order),
		SearchTerm:      p.SearchTerm,
		Status:          p.Status,
		CommanderUserID: p.CommanderUserID,
	}
}
