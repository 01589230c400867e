// Package client is the HTTP implementation of the query.Fetcher contract,
// speaking to the incident API served by the api package.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"incidentdeck/core/query"
	"incidentdeck/core/store"
)

type Client struct {
	client  *http.Client
	baseURL string
}

func New(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ query.Fetcher = (*Client)(nil)

func (c *Client) ListIncidents(ctx context.Context, p query.Params) (query.Page, error) {
	values := url.Values{}
	values.Set("team_id", p.TeamID)
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("per_page", strconv.Itoa(p.PerPage))
	values.Set("sort", string(p.Sort))
	values.Set("order", string(p.Order))
	if p.SearchTerm != "" {
		values.Set("search", p.SearchTerm)
	}
	if p.Status != "" {
		values.Set("status", p.Status)
	}
	if p.CommanderUserID != "" {
		values.Set("commander_user_id", p.CommanderUserID)
	}
	var page query.Page
	if err := c.getJSON(ctx, "/api/v1/incidents?"+values.Encode(), &page); err != nil {
		return query.Page{}, err
	}
	return page, nil
}

func (c *Client) ListCommanders(ctx context.Context, teamID string) ([]string, error) {
	values := url.Values{}
	values.Set("team_id", teamID)
	var out struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := c.getJSON(ctx, "/api/v1/incidents/commanders?"+values.Encode(), &out); err != nil {
		return nil, err
	}
	return out.UserIDs, nil
}

func (c *Client) FetchIncidentDetail(ctx context.Context, id string) (*store.IncidentDetail, error) {
	var detail store.IncidentDetail
	if err := c.getJSON(ctx, "/api/v1/incidents/"+url.PathEscape(id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) FetchIncidentSummary(ctx context.Context, id string) (*store.Incident, error) {
	var inc store.Incident
	if err := c.getJSON(ctx, "/api/v1/incidents/"+url.PathEscape(id)+"/summary", &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return store.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
