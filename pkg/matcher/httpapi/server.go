// Package httpapi exposes the matcher's three HTTP endpoints: project
// creation (which immediately triggers a match run), a re-run for an
// existing project, and a read of a project's most recent persisted
// matches. The router applies no authentication.
// Project CRUD/auth themselves are out of scope; callers supply a
// ProjectStore seam.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	apperrors "github.com/opportumatch/matcher/internal/errors"
	"github.com/opportumatch/matcher/pkg/matcher/orchestrator"
	"github.com/opportumatch/matcher/pkg/matcher/persist"
	"github.com/opportumatch/matcher/pkg/matcher/types"
)

// DefaultRunMatchTopK is the top_k a Server falls back to when it is
// constructed with a non-positive topK; NewServer always uses it.
const DefaultRunMatchTopK = 5

// ProjectStore is the seam into the project-CRUD surface the matcher
// itself does not own.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *types.Project) (id, slug string, err error)
	GetProject(ctx context.Context, id string) (project *types.Project, slug string, err error)
}

// Server wires an HTTP surface on top of an Orchestrator and a
// ProjectStore.
type Server struct {
	store       ProjectStore
	orch        *orchestrator.Orchestrator
	persister   *persist.Persister
	logger      *logrus.Logger
	validate    *validator.Validate
	weights     types.Weights
	calibration types.CalibrationStrategy
	topK        int
}

// NewServer constructs a Server using the balanced default weights,
// relative min-max calibration, and DefaultRunMatchTopK. Use
// NewServerWithDefaults to override any of these from configuration.
func NewServer(store ProjectStore, orch *orchestrator.Orchestrator, persister *persist.Persister, logger *logrus.Logger) *Server {
	return NewServerWithDefaults(store, orch, persister, logger, types.BalancedWeights(), types.CalibrationRelativeMinMax, DefaultRunMatchTopK)
}

// NewServerWithDefaults constructs a Server with explicit default fusion
// weights, calibration strategy, and top_k. The weights and calibration
// apply to every run this Server triggers; topK is used by the run that
// follows project creation and by run_match unless the request passes
// ?top_k=. A non-positive topK falls back to DefaultRunMatchTopK.
func NewServerWithDefaults(store ProjectStore, orch *orchestrator.Orchestrator, persister *persist.Persister, logger *logrus.Logger, weights types.Weights, calibration types.CalibrationStrategy, topK int) *Server {
	if topK <= 0 {
		topK = DefaultRunMatchTopK
	}
	return &Server{
		store:       store,
		orch:        orch,
		persister:   persister,
		logger:      logger,
		validate:    validator.New(),
		weights:     weights,
		calibration: calibration,
		topK:        topK,
	}
}

// Router builds the chi router exposing the matcher's endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Post("/projects", s.handleCreateProject)
	r.Post("/projects/{projectID}/run_match", s.handleRunMatch)
	r.Get("/projects/{projectID}/matches", s.handleGetMatches)

	return r
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.GetStatusCode(err)
	writeJSON(w, status, map[string]string{"error": apperrors.SafeErrorMessage(err)})
	if s.logger != nil {
		s.logger.WithFields(apperrors.LogFields(err)).Warn("request failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
