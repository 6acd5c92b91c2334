// Package api exposes the dashboard over HTTP: project CRUD, sheet
// discovery, selection changes, the aggregated snapshot, and the login
// passthrough.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/desicrew/annotation-monitor/internal/dashboard"
	"github.com/desicrew/annotation-monitor/internal/ingest"
	"github.com/desicrew/annotation-monitor/internal/pkg/httputil"
	"github.com/desicrew/annotation-monitor/internal/project"
	"github.com/desicrew/annotation-monitor/internal/sheets"
)

// LoginProxy is the credential-check contract the sheet client satisfies.
type LoginProxy interface {
	Login(ctx context.Context, endpointURL, username, password string) (sheets.LoginResult, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	store     project.Store
	dashboard *dashboard.Service
	login     LoginProxy
	startTime time.Time
}

// NewHandlers creates the API handlers.
func NewHandlers(store project.Store, svc *dashboard.Service, login LoginProxy) *Handlers {
	return &Handlers{
		store:     store,
		dashboard: svc,
		login:     login,
		startTime: time.Now(),
	}
}

// HealthCheck reports liveness and uptime.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// ListProjects returns every configured project.
//
//	GET /api/projects
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	httputil.OK(w, projects)
}

type projectRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

func (p projectRequest) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
		return errors.New("url must be an http(s) endpoint")
	}
	return nil
}

// CreateProject registers a new spreadsheet endpoint.
//
//	POST /api/projects
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	p := project.New(req.Name, req.URL, req.Category)
	if err := h.store.Save(r.Context(), p); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, p)
}

// UpdateProject edits an existing project. Category is immutable once set.
//
//	PUT /api/projects/{id}
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httputil.NotFound(w, "project not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	var req projectRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	existing.Name = req.Name
	existing.URL = req.URL
	if err := h.store.Save(r.Context(), existing); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, existing)
}

// DeleteProject removes a project.
//
//	DELETE /api/projects/{id}
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httputil.NotFound(w, "project not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListProjectSheets returns the category-relevant sheet names under one
// project.
//
//	GET /api/projects/{id}/sheets
func (h *Handlers) ListProjectSheets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	names, err := h.dashboard.AvailableSheets(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httputil.NotFound(w, "project not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.OK(w, map[string]any{"sheets": names})
}

// GetSelection returns the current sheet selection and loading state.
//
//	GET /api/selection
func (h *Handlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"selection": h.dashboard.Selection(),
		"loading":   h.dashboard.Loading(),
	})
}

type selectionRequest struct {
	Selection []ingest.SheetRef `json:"selection"`
}

// SetSelection replaces the selection and runs a refresh cycle, returning
// the resulting snapshot.
//
//	PUT /api/selection
func (h *Handlers) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	for _, ref := range req.Selection {
		if ref.ProjectID == "" || ref.SheetName == "" {
			httputil.BadRequest(w, "selection entries need projectId and sheetName")
			return
		}
	}

	snap, err := h.dashboard.SetSelection(r.Context(), req.Selection)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, snap)
}

// GetDashboard returns the latest snapshot.
//
//	GET /api/dashboard
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap := h.dashboard.Snapshot()
	if snap == nil {
		httputil.OK(w, map[string]any{"loading": h.dashboard.Loading()})
		return
	}
	httputil.OK(w, snap)
}

// RefreshDashboard re-runs the current selection's fetch and aggregation.
//
//	POST /api/dashboard/refresh
func (h *Handlers) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dashboard.Refresh(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, snap)
}

// ListAllSheets returns the relevant sheets of every configured project,
// keyed by project id.
//
//	GET /api/sheets
func (h *Handlers) ListAllSheets(w http.ResponseWriter, r *http.Request) {
	byProject, err := h.dashboard.AllAvailableSheets(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"sheets": byProject})
}

// GetBirthdays scans for people whose date of birth matches today.
//
//	GET /api/birthdays
func (h *Handlers) GetBirthdays(w http.ResponseWriter, r *http.Request) {
	greeting, err := h.dashboard.ScanBirthdays(r.Context(), time.Now())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if greeting.Names == nil {
		greeting.Names = []string{}
	}
	httputil.OK(w, greeting)
}

type loginRequest struct {
	ProjectID string `json:"projectId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// Login forwards a credential check to a project's endpoint.
//
//	POST /api/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	proj, err := h.store.Get(r.Context(), req.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httputil.NotFound(w, "project not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	result, err := h.login.Login(r.Context(), proj.URL, req.Username, req.Password)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !result.Success {
		httputil.Error(w, http.StatusUnauthorized, result.Message)
		return
	}
	httputil.OK(w, result)
}
