package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pzaremba/sprintdesk/internal/domain"
)

// EntityKind names a project-scoped entity collection on the wire.
type EntityKind string

const (
	KindProject EntityKind = "projects"
	KindEpic    EntityKind = "epics"
	KindSprint  EntityKind = "sprints"
	KindItem    EntityKind = "items"
)

// Client talks to the project-management backend. All authenticated calls use
// the access token last set via SetAccessToken; a 401 on any of them is
// surfaced as ErrTokenExpired for the session layer to resolve.
type Client interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error)
	Signup(ctx context.Context, reg domain.Registration) error
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	FetchProfile(ctx context.Context) (domain.Profile, error)

	ListProjects(ctx context.Context) ([]*domain.Project, error)
	CreateProject(ctx context.Context, p *domain.Project) error
	UpdateProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	ListEpics(ctx context.Context, projectID string) ([]*domain.Epic, error)
	CreateEpic(ctx context.Context, e *domain.Epic) error
	UpdateEpic(ctx context.Context, e *domain.Epic) error
	DeleteEpic(ctx context.Context, id string) error

	ListSprints(ctx context.Context, projectID string) ([]*domain.Sprint, error)
	CreateSprint(ctx context.Context, s *domain.Sprint) error
	UpdateSprint(ctx context.Context, s *domain.Sprint) error
	DeleteSprint(ctx context.Context, id string) error

	ListItems(ctx context.Context, projectID string) ([]*domain.Item, error)
	CreateItem(ctx context.Context, it *domain.Item) error
	UpdateItem(ctx context.Context, it *domain.Item) error
	DeleteItem(ctx context.Context, id string) error

	// Patch updates a subset of fields on a single entity. It is the one
	// generic per-field mutation shared by every edit surface.
	Patch(ctx context.Context, kind EntityKind, id string, fields map[string]any) error

	// SetAccessToken replaces the token attached to authenticated calls.
	// An empty string detaches authentication entirely.
	SetAccessToken(token string)
}

type restClient struct {
	cfg      Config
	http     *http.Client
	observer Observer

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client for the backend at cfg.BaseURL.
func NewClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &restClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

func (c *restClient) SetAccessToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *restClient) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do performs one HTTP round trip and returns the status code and raw body.
// Transport failures come back as a wrapped ErrNetwork; non-2xx statuses are
// left for the caller to map.
func (c *restClient) do(ctx context.Context, method, path string, body any, authed bool) (int, []byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		if tok := c.accessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.OnCallComplete(CallEvent{
			Method: method, Path: path,
			LatencyMs: time.Since(start).Milliseconds(),
			Success:   false, ErrorCode: "NETWORK",
		})
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	event := CallEvent{
		Method: method, Path: path, Status: resp.StatusCode,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !event.Success {
		event.ErrorCode = fmt.Sprintf("HTTP_%d", resp.StatusCode)
	}
	c.observer.OnCallComplete(event)

	return resp.StatusCode, buf.Bytes(), nil
}

// checkStatus maps a non-2xx authenticated response to a typed error.
func checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrTokenExpired
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return &BackendError{Status: status, Payload: string(body)}
	}
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *restClient) Login(ctx context.Context, creds domain.Credentials) (domain.TokenPair, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, false)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if status < 200 || status >= 300 {
		return domain.TokenPair{}, &BackendError{Status: status, Payload: string(body)}
	}
	var pair tokenPairResponse
	if err := decode(body, &pair); err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: pair.Access, Refresh: pair.Refresh}, nil
}

// signupErrorResponse is the field-level rejection body returned by the
// backend on an invalid registration.
type signupErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}

func (c *restClient) Signup(ctx context.Context, reg domain.Registration) error {
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/signup", reg, false)
	if err != nil {
		return err
	}
	if status >= 400 && status < 500 {
		var rej signupErrorResponse
		if decodeErr := json.Unmarshal(body, &rej); decodeErr == nil && len(rej.Errors) > 0 {
			return ValidationErrors(rej.Errors)
		}
		return &BackendError{Status: status, Payload: string(body)}
	}
	if status < 200 || status >= 300 {
		return &BackendError{Status: status, Payload: string(body)}
	}
	return nil
}

func (c *restClient) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	req := map[string]string{"refresh": refreshToken}
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/refresh", req, false)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.TokenPair{}, ErrTokenExpired
	}
	if status < 200 || status >= 300 {
		return domain.TokenPair{}, &BackendError{Status: status, Payload: string(body)}
	}
	var pair tokenPairResponse
	if err := decode(body, &pair); err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: pair.Access, Refresh: pair.Refresh}, nil
}

func (c *restClient) FetchProfile(ctx context.Context) (domain.Profile, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/users/me", nil, true)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := checkStatus(status, body); err != nil {
		return domain.Profile{}, err
	}
	var p domain.Profile
	if err := decode(body, &p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (c *restClient) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/projects", nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	var out []*domain.Project
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateProject(ctx context.Context, p *domain.Project) error {
	return c.create(ctx, "/api/projects", p, p)
}

func (c *restClient) UpdateProject(ctx context.Context, p *domain.Project) error {
	return c.update(ctx, "/api/projects/"+p.ID, p)
}

func (c *restClient) DeleteProject(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/projects/"+id)
}

func (c *restClient) ListEpics(ctx context.Context, projectID string) ([]*domain.Epic, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/epics", nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	var out []*domain.Epic
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateEpic(ctx context.Context, e *domain.Epic) error {
	return c.create(ctx, "/api/projects/"+e.ProjectID+"/epics", e, e)
}

func (c *restClient) UpdateEpic(ctx context.Context, e *domain.Epic) error {
	return c.update(ctx, "/api/epics/"+e.ID, e)
}

func (c *restClient) DeleteEpic(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/epics/"+id)
}

func (c *restClient) ListSprints(ctx context.Context, projectID string) ([]*domain.Sprint, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/sprints", nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	var out []*domain.Sprint
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateSprint(ctx context.Context, s *domain.Sprint) error {
	return c.create(ctx, "/api/projects/"+s.ProjectID+"/sprints", s, s)
}

func (c *restClient) UpdateSprint(ctx context.Context, s *domain.Sprint) error {
	return c.update(ctx, "/api/sprints/"+s.ID, s)
}

func (c *restClient) DeleteSprint(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/sprints/"+id)
}

func (c *restClient) ListItems(ctx context.Context, projectID string) ([]*domain.Item, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/items", nil, true)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	var out []*domain.Item
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateItem(ctx context.Context, it *domain.Item) error {
	return c.create(ctx, "/api/projects/"+it.ProjectID+"/items", it, it)
}

func (c *restClient) UpdateItem(ctx context.Context, it *domain.Item) error {
	return c.update(ctx, "/api/items/"+it.ID, it)
}

func (c *restClient) DeleteItem(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/items/"+id)
}

func (c *restClient) Patch(ctx context.Context, kind EntityKind, id string, fields map[string]any) error {
	status, body, err := c.do(ctx, http.MethodPatch, "/api/"+string(kind)+"/"+id, fields, true)
	if err != nil {
		return err
	}
	return checkStatus(status, body)
}

// create posts body and, when the backend echoes the created entity, decodes
// it back into out so server-assigned ids land on the caller's struct.
func (c *restClient) create(ctx context.Context, path string, body, out any) error {
	status, respBody, err := c.do(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return err
	}
	if err := checkStatus(status, respBody); err != nil {
		return err
	}
	return decode(respBody, out)
}

func (c *restClient) update(ctx context.Context, path string, body any) error {
	status, respBody, err := c.do(ctx, http.MethodPut, path, body, true)
	if err != nil {
		return err
	}
	return checkStatus(status, respBody)
}

func (c *restClient) delete(ctx context.Context, path string) error {
	status, respBody, err := c.do(ctx, http.MethodDelete, path, nil, true)
	if err != nil {
		return err
	}
	return checkStatus(status, respBody)
}
