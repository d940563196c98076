package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/opportumatch/matcher/internal/errors"
	"github.com/opportumatch/matcher/pkg/matcher/types"
)

// createProjectRequest is the incoming shape for POST /projects, validated
// before any persistence or LLM call is made.
type createProjectRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Stage       string   `json:"stage"`
	Sectors     []string `json:"sectors" validate:"required,min=1"`
	Goals       []string `json:"goals"`
	FundingNeed float64  `json:"funding_need" validate:"gte=0"`
}

func (r createProjectRequest) toProject() *types.Project {
	return &types.Project{
		Name:        r.Name,
		Description: r.Description,
		Stage:       r.Stage,
		Sectors:     r.Sectors,
		Goals:       r.Goals,
		FundingNeed: r.FundingNeed,
	}
}

type matchingOutcome struct {
	Inserted int    `json:"inserted"`
	RunAt    string `json:"run_at,omitempty"`
	Error    string `json:"error,omitempty"`
}

type createProjectResponse struct {
	Project  types.Project   `json:"project"`
	Matching matchingOutcome `json:"matching"`
}

// handleCreateProject validates the incoming project, delegates creation
// to the ProjectStore, then immediately runs a match for it. A matching
// failure never fails project creation: it's surfaced in matching.error.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.New(apperrors.ErrorTypeInput, "malformed request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, apperrors.Wrap(err, apperrors.ErrorTypeInput, "invalid project"))
		return
	}

	project := req.toProject()
	if problems := project.Validate(); len(problems) > 0 {
		s.writeError(w, apperrors.New(apperrors.ErrorTypeInput, "invalid project: "+problems[0]))
		return
	}

	id, slug, err := s.store.CreateProject(r.Context(), project)
	if err != nil {
		s.writeError(w, apperrors.Wrap(err, apperrors.ErrorTypeDatabase, "failed to create project"))
		return
	}
	project.ID = id
	project.Slug = slug

	resp := createProjectResponse{Project: *project}

	result, err := s.orch.RunMatch(r.Context(), id, slug, project, s.topK, s.weights, s.calibration)
	if err != nil {
		resp.Matching.Error = apperrors.SafeErrorMessage(err)
	} else {
		resp.Matching.Inserted = result.Inserted
		resp.Matching.RunAt = result.Payload.Meta.RunAtString()
	}

	writeJSON(w, http.StatusCreated, resp)
}

type runMatchResponse struct {
	OK           bool                 `json:"ok"`
	ProjectID    string               `json:"project_id"`
	RunAt        string               `json:"run_at"`
	InsertedRows int                  `json:"inserted_rows"`
	Results      []types.RankedResult `json:"results"`
	Meta         types.RunMeta        `json:"meta"`
}

// handleRunMatch re-runs matching for an existing project, honoring an
// optional ?top_k= override.
func (s *Server) handleRunMatch(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, slug, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		s.writeError(w, apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "project not found"))
		return
	}

	topK := s.topK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			topK = parsed
		}
	}

	result, err := s.orch.RunMatch(r.Context(), projectID, slug, project, topK, s.weights, s.calibration)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runMatchResponse{
		OK:           true,
		ProjectID:    projectID,
		RunAt:        result.Payload.Meta.RunAtString(),
		InsertedRows: result.Inserted,
		Results:      result.Payload.Results,
		Meta:         result.Payload.Meta,
	})
}

// handleGetMatches returns the persisted rows for a project's most recent
// run, ordered by rank ascending.
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows, err := s.persister.LatestMatches(r.Context(), projectID, limit)
	if err != nil {
		s.writeError(w, apperrors.Wrap(err, apperrors.ErrorTypeDatabase, "failed to read matches"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"project_id": projectID, "matches": rows})
}
