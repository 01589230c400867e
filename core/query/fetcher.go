package query

import (
	"context"

	"incidentdeck/core/store"
)

// Page is one resolved list fetch: the visible items plus the size of the
// whole filtered set.
type Page struct {
	Items      []store.Incident `json:"items"`
	TotalCount int              `json:"total_count"`
}

// Fetcher performs the backend queries the controllers depend on. The detail
// and summary fetches are distinct endpoints with different payload richness
// and can fail independently.
type Fetcher interface {
	ListIncidents(ctx context.Context, p Params) (Page, error)
	ListCommanders(ctx context.Context, teamID string) ([]string, error)
	FetchIncidentDetail(ctx context.Context, id string) (*store.IncidentDetail, error)
	FetchIncidentSummary(ctx context.Context, id string) (*store.Incident, error)
}

// Profile is the display shape of a user id, produced by an external lookup
// this package does not own.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type ProfileResolver interface {
	Resolve(ctx context.Context, userID string) (Profile, error)
}

// Commander pairs a commander user id with its resolved profile.
type Commander struct {
	UserID  string  `json:"user_id"`
	Profile Profile `json:"profile"`
}
