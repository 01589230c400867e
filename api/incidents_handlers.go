package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"incidentdeck/core/store"
)

var validSortColumns = map[string]struct{}{
	store.SortByName:     {},
	store.SortByStatus:   {},
	store.SortByCreateAt: {},
	store.SortByEndAt:    {},
}

var validSortOrders = map[string]struct{}{
	store.OrderAsc:  {},
	store.OrderDesc: {},
}

var validStatusFilters = map[string]struct{}{
	"":                 {},
	store.StatusActive: {},
	store.StatusEnded:  {},
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	q := store.ListQuery{
		TeamID:          strings.TrimSpace(r.URL.Query().Get("team_id")),
		Page:            parseIntDefault(r.URL.Query().Get("page"), 0),
		PerPage:         s.cfg.EffectivePerPage(parseIntDefault(r.URL.Query().Get("per_page"), 0)),
		Sort:            strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort"))),
		Order:           strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order"))),
		SearchTerm:      r.URL.Query().Get("search"),
		Status:          strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		CommanderUserID: strings.TrimSpace(r.URL.Query().Get("commander_user_id")),
	}
	if q.TeamID == "" {
		http.Error(w, "team_id required", http.StatusBadRequest)
		return
	}
	if q.Sort == "" {
		q.Sort = store.SortByCreateAt
	}
	if q.Order == "" {
		q.Order = store.OrderDesc
	}
	if _, ok := validSortColumns[q.Sort]; !ok {
		http.Error(w, "invalid sort column", http.StatusBadRequest)
		return
	}
	if _, ok := validSortOrders[q.Order]; !ok {
		http.Error(w, "invalid sort order", http.StatusBadRequest)
		return
	}
	if _, ok := validStatusFilters[q.Status]; !ok {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	if q.Page < 0 {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	items, total, err := s.incidents.ListIncidents(r.Context(), q)
	if err != nil {
		s.logger.Errorf("list incidents: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"total_count": total,
	})
}

func (s *Server) handleListCommanders(w http.ResponseWriter, r *http.Request) {
	teamID := strings.TrimSpace(r.URL.Query().Get("team_id"))
	if teamID == "" {
		http.Error(w, "team_id required", http.StatusBadRequest)
		return
	}
	ids, err := s.incidents.ListCommanders(r.Context(), teamID)
	if err != nil {
		s.logger.Errorf("list commanders: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_ids": ids})
}

func (s *Server) handleGetIncidentDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := s.incidents.GetIncidentDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "incident not found", http.StatusNotFound)
			return
		}
		s.logger.Errorf("get incident detail %s: %v", id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetIncidentSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inc, err := s.incidents.GetIncident(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "incident not found", http.StatusNotFound)
			return
		}
		s.logger.Errorf("get incident summary %s: %v", id, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if len(attrs) == 0 {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}
	id, _ := attrs["id"].(string)
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
		attrs["id"] = id
	}
	if err := s.runs.InsertRun(r.Context(), attrs); err != nil {
		s.logger.Errorf("insert run: %v", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		CreateAt int64  `json:"create_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.Must(uuid.NewV4()).String()
	}
	if req.CreateAt == 0 {
		req.CreateAt = time.Now().UnixMilli()
	}
	if err := s.runs.InsertPost(r.Context(), req.ID, req.CreateAt); err != nil {
		s.logger.Errorf("insert post: %v", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "create_at": req.CreateAt})
}

func (s *Server) handleCreateStatusPost(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")
	var req struct {
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PostID) == "" {
		http.Error(w, "post_id required", http.StatusBadRequest)
		return
	}
	if err := s.runs.InsertStatusPost(r.Context(), incidentID, req.PostID); err != nil {
		s.logger.Errorf("insert status post: %v", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"incident_id": incidentID,
		"post_id":     req.PostID,
	})
}

func (s *Server) handleCreateStatusUpdate(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")
	var req struct {
		PostID   string `json:"post_id"`
		CreateAt int64  `json:"create_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if req.PostID == "" {
		req.PostID = uuid.Must(uuid.NewV4()).String()
	}
	if req.CreateAt == 0 {
		req.CreateAt = time.Now().UnixMilli()
	}
	if err := s.runs.CreateStatusUpdate(r.Context(), incidentID, req.PostID, req.CreateAt); err != nil {
		s.logger.Errorf("create status update: %v", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"incident_id": incidentID,
		"post_id":     req.PostID,
		"create_at":   req.CreateAt,
	})
}

// writeStoreError distinguishes referential violations, which the caller can
// act on by sequencing the prerequisite inserts, from everything else.
func writeStoreError(w http.ResponseWriter, err error) {
	if isForeignKeyViolation(err) {
		http.Error(w, "referential violation", http.StatusConflict)
		return
	}
	http.Error(w, "server error", http.StatusInternalServerError)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY")
}
