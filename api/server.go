package api

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/go-chi/chi/v5"
	"net/http"

	"incidentdeck/config"
	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

// teamReadModel matches (viewer, team, action) requests against configured
// policies; "*" wildcards any field.
const teamReadModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (r.sub == p.sub || p.sub == "*") && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

type Server struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	runs      store.RunsStore
	enforcer  *casbin.Enforcer
	logger    *utils.Logger
}

func NewServer(cfg *config.AppConfig, incidents store.IncidentsStore, runs store.RunsStore, logger *utils.Logger) (*Server, error) {
	s := &Server{cfg: cfg, incidents: incidents, runs: runs, logger: logger}
	if len(cfg.Security.TeamPolicies) > 0 {
		enforcer, err := newTeamEnforcer(cfg.Security.TeamPolicies)
		if err != nil {
			return nil, err
		}
		s.enforcer = enforcer
	}
	return s, nil
}

// newTeamEnforcer builds an in-memory enforcer from "viewer,team" or
// "viewer,team,action" policy entries.
func newTeamEnforcer(policies []string) (*casbin.Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(teamReadModel)
	if err != nil {
		return nil, fmt.Errorf("team policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("team policy enforcer: %w", err)
	}
	for _, raw := range policies {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch len(parts) {
		case 2:
			parts = append(parts, "read")
		case 3:
		default:
			return nil, fmt.Errorf("malformed team policy %q", raw)
		}
		if _, err := enforcer.AddPolicy(parts[0], parts[1], parts[2]); err != nil {
			return nil, fmt.Errorf("add team policy %q: %w", raw, err)
		}
	}
	return enforcer, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
			incidentsRouter.With(s.teamGuard).Get("/", s.handleListIncidents)
			incidentsRouter.With(s.teamGuard).Get("/commanders", s.handleListCommanders)
			incidentsRouter.Post("/", s.handleCreateRun)
			incidentsRouter.Get("/{id}", s.handleGetIncidentDetail)
			incidentsRouter.Get("/{id}/summary", s.handleGetIncidentSummary)
			incidentsRouter.Post("/{id}/status-posts", s.handleCreateStatusPost)
			incidentsRouter.Post("/{id}/status-updates", s.handleCreateStatusUpdate)
		})
		apiRouter.Post("/posts", s.handleCreatePost)
	})
	return r
}
