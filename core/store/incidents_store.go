package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var ErrNotFound = errors.New("not found")

// End timestamps started being recorded at this instant (epoch millis,
// 2020-01-01 UTC). Inactive incidents with an earlier value predate the
// recording and must render as "not ended".
const endAtRecordedSince int64 = 1577836800000

// Incident is the list-view shape. Rows are replaced wholesale on every list
// fetch and never merged with detail payloads.
type Incident struct {
	ID              string `json:"id"`
	TeamID          string `json:"team_id"`
	Name            string `json:"name"`
	IsActive        bool   `json:"is_active"`
	CommanderUserID string `json:"commander_user_id"`
	CreateAt        int64  `json:"create_at"`
	EndAt           int64  `json:"end_at"`
}

// EndedAt reports the display end time. Active incidents never have one, and
// neither do incidents whose end predates the recording epoch.
func (i Incident) EndedAt() (time.Time, bool) {
	if i.IsActive || i.EndAt < endAtRecordedSince {
		return time.Time{}, false
	}
	return time.UnixMilli(i.EndAt).UTC(), true
}

// IncidentDetail carries the fields the detail view needs beyond the list
// shape. Fetched on demand through its own endpoint.
type IncidentDetail struct {
	Incident
	Description    string          `json:"description"`
	ChannelID      string          `json:"channel_id"`
	PostID         string          `json:"post_id"`
	ActiveStage    int             `json:"active_stage"`
	ChecklistsJSON json.RawMessage `json:"checklists_json"`
}

// ListQuery mirrors the dashboard's fetch parameters. TeamID is required;
// everything else narrows or orders the filtered set.
type ListQuery struct {
	TeamID          string
	Page            int
	PerPage         int
	Sort            string
	Order           string
	SearchTerm      string
	Status          string
	CommanderUserID string
}

const (
	SortByName     = "name"
	SortByStatus   = "status"
	SortByCreateAt = "create_at"
	SortByEndAt    = "end_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	StatusActive = "active"
	StatusEnded  = "ended"
)

var sortColumns = map[string]string{
	SortByName:     "name",
	SortByStatus:   "is_active",
	SortByCreateAt: "create_at",
	SortByEndAt:    "end_at",
}

type IncidentsStore interface {
	ListIncidents(ctx context.Context, q ListQuery) ([]Incident, int, error)
	ListCommanders(ctx context.Context, teamID string) ([]string, error)
	GetIncident(ctx context.Context, id string) (*Incident, error)
	GetIncidentDetail(ctx context.Context, id string) (*IncidentDetail, error)
}

type incidentsStore struct {
	db *DB
}

func NewIncidentsStore(db *DB) IncidentsStore {
	return &incidentsStore{db: db}
}

func (s *incidentsStore) listConds(q ListQuery) sq.And {
	conds := sq.And{sq.Eq{"team_id": q.TeamID}}
	switch q.Status {
	case StatusActive:
		conds = append(conds, sq.Eq{"is_active": true})
	case StatusEnded:
		conds = append(conds, sq.Eq{"is_active": false})
	}
	if q.CommanderUserID != "" {
		conds = append(conds, sq.Eq{"commander_user_id": q.CommanderUserID})
	}
	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		conds = append(conds, sq.Like{"name": "%" + term + "%"})
	}
	return conds
}

// ListIncidents returns one page of the filtered, sorted incident set plus
// the total size of that filtered set (not the unfiltered team total).
func (s *incidentsStore) ListIncidents(ctx context.Context, q ListQuery) ([]Incident, int, error) {
	if strings.TrimSpace(q.TeamID) == "" {
		return nil, 0, errors.New("team id required")
	}
	column, ok := sortColumns[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("unknown sort column %q", q.Sort)
	}
	direction := "ASC"
	switch q.Order {
	case OrderAsc, "":
	case OrderDesc:
		direction = "DESC"
	default:
		return nil, 0, fmt.Errorf("unknown sort order %q", q.Order)
	}
	if q.PerPage <= 0 {
		return nil, 0, errors.New("per page must be positive")
	}
	if q.Page < 0 {
		return nil, 0, errors.New("page must not be negative")
	}
	conds := s.listConds(q)

	var total int
	row, err := s.db.queryRowBuilder(ctx, s.db.Builder().
		Select("COUNT(*)").
		From("incidents").
		Where(conds))
	if err != nil {
		return nil, 0, err
	}
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.queryBuilder(ctx, s.db.Builder().
		Select("id", "team_id", "name", "is_active", "commander_user_id", "create_at", "end_at").
		From("incidents").
		Where(conds).
		OrderBy(fmt.Sprintf("%s %s", column, direction), "id ASC").
		Limit(uint64(q.PerPage)).
		Offset(uint64(q.Page*q.PerPage)))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Incident
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.ID, &inc.TeamID, &inc.Name, &inc.IsActive, &inc.CommanderUserID, &inc.CreateAt, &inc.EndAt); err != nil {
			return nil, 0, err
		}
		items = append(items, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Incident{}
	}
	return items, total, nil
}

func (s *incidentsStore) ListCommanders(ctx context.Context, teamID string) ([]string, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, errors.New("team id required")
	}
	rows, err := s.db.queryBuilder(ctx, s.db.Builder().
		Select("DISTINCT commander_user_id").
		From("incidents").
		Where(sq.And{
			sq.Eq{"team_id": teamID},
			sq.NotEq{"commander_user_id": ""},
		}).
		OrderBy("commander_user_id ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id string) (*Incident, error) {
	row, err := s.db.queryRowBuilder(ctx, s.db.Builder().
		Select("id", "team_id", "name", "is_active", "commander_user_id", "create_at", "end_at").
		From("incidents").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var inc Incident
	if err := row.Scan(&inc.ID, &inc.TeamID, &inc.Name, &inc.IsActive, &inc.CommanderUserID, &inc.CreateAt, &inc.EndAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inc, nil
}

func (s *incidentsStore) GetIncidentDetail(ctx context.Context, id string) (*IncidentDetail, error) {
	row, err := s.db.queryRowBuilder(ctx, s.db.Builder().
		Select("id", "team_id", "name", "is_active", "commander_user_id", "create_at", "end_at",
			"description", "channel_id", "post_id", "active_stage", "checklists_json").
		From("incidents").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var d IncidentDetail
	var checklists []byte
	if err := row.Scan(&d.ID, &d.TeamID, &d.Name, &d.IsActive, &d.CommanderUserID, &d.CreateAt, &d.EndAt,
		&d.Description, &d.ChannelID, &d.PostID, &d.ActiveStage, &checklists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.ChecklistsJSON = json.RawMessage(checklists)
	return &d, nil
}
