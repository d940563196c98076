// Package orchestrator wires retrieval, scoring, calibration, violation
// derivation, and persistence into the single run_match operation.
package orchestrator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/opportumatch/matcher/internal/errors"
	"github.com/opportumatch/matcher/pkg/matcher/calibrate"
	"github.com/opportumatch/matcher/pkg/matcher/notify"
	"github.com/opportumatch/matcher/pkg/matcher/persist"
	"github.com/opportumatch/matcher/pkg/matcher/retriever"
	"github.com/opportumatch/matcher/pkg/matcher/scoring"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	"github.com/opportumatch/matcher/pkg/matcher/violations"
	"github.com/opportumatch/matcher/pkg/metrics"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
)

// DefaultTopK is applied when a caller doesn't specify one.
const DefaultTopK = 5

var tracer = otel.Tracer("github.com/opportumatch/matcher/pkg/matcher/orchestrator")

// ModelInfo names the model identifiers the orchestrator stamps into
// meta, so persisted/returned payloads are self-describing.
type ModelInfo struct {
	LLMModel   string
	EmbedModel string
}

// Orchestrator runs one project through the full matching pipeline.
type Orchestrator struct {
	retriever *retriever.Retriever
	scorer    *scoring.Scorer
	evaluator *violations.Evaluator
	persister *persist.Persister
	notifier  *notify.Notifier
	models    ModelInfo
	logger    *logrus.Logger
}

// NewOrchestrator constructs an Orchestrator from its already-wired
// component collaborators.
func NewOrchestrator(
	r *retriever.Retriever,
	s *scoring.Scorer,
	e *violations.Evaluator,
	p *persist.Persister,
	n *notify.Notifier,
	models ModelInfo,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		retriever: r,
		scorer:    s,
		evaluator: e,
		persister: p,
		notifier:  n,
		models:    models,
		logger:    logger,
	}
}

// RunResult is what RunMatch returns: the full payload plus the
// persister's authoritative inserted-row count.
type RunResult struct {
	Payload  types.MatchPayload
	Inserted int
}

// RunMatch retrieves candidates for project, scores and ranks them,
// calibrates presentation scores, derives violations, persists the rows,
// and returns the complete payload. projectSlug and projectID key the
// persisted rows; an empty topK falls back to DefaultTopK.
func (o *Orchestrator) RunMatch(
	ctx context.Context,
	projectID, projectSlug string,
	project *types.Project,
	topK int,
	weights types.Weights,
	calibration types.CalibrationStrategy,
) (*RunResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if problems := project.Validate(); len(problems) > 0 {
		return nil, apperrors.New(apperrors.ErrorTypeInput, "invalid project: "+problems[0])
	}

	runAt := time.Now().UTC()
	timer := metrics.NewRunTimer()

	ctx, span := tracer.Start(ctx, "run_match", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("run_at", runAt.Format(time.RFC3339)),
	))
	defer span.End()

	logFields := sharedlogging.NewFields().
		Component("orchestrator").
		Operation("run_match").
		Resource("project", projectID)

	candidates, err := o.retrieve(ctx, project, topK)
	if err != nil {
		metrics.RecordRun("index_error")
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeIndex, "candidate retrieval failed")
	}
	metrics.RecordCandidatesRetrieved(len(candidates))

	var (
		ranked     []types.RankedResult
		diagnostic string
	)
	if len(candidates) == 0 {
		diagnostic = "no candidates retrieved"
	} else {
		ranked, err = o.score(ctx, project, candidates, weights)
		if err != nil {
			diagnostic = "all candidates failed scoring: " + err.Error()
			metrics.RecordScoringError("all_failed")
			if o.notifier != nil {
				o.notifier.NotifyRunIssue(ctx, projectSlug, notify.ReasonAllCandidatesFailed, err.Error())
			}
		}
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
		for i := range ranked {
			ranked[i].Rank = i + 1
		}
	}

	o.calibrateStage(ctx, ranked, calibration)
	o.deriveViolations(ctx, project, ranked, candidateMetadataByRef(candidates))

	payload := types.MatchPayload{
		ProjectRef: projectID,
		Project:    *project,
		Meta: types.RunMeta{
			RunAt:               runAt,
			Weights:             weights,
			TopK:                topK,
			RetrievalMultiplier: o.retriever.EffectivePoolMultiplier(),
			Calibration:         calibration,
			LLMModel:            o.models.LLMModel,
			EmbedModel:          o.models.EmbedModel,
			Diagnostic:          diagnostic,
		},
		Results: ranked,
	}

	inserted, persistErr := o.persist(ctx, projectID, projectSlug, runAt, ranked)
	if persistErr != nil {
		payload.Meta.Diagnostic = joinDiagnostic(payload.Meta.Diagnostic, persistErr.Error())
		if o.notifier != nil {
			o.notifier.NotifyRunIssue(ctx, projectSlug, notify.ReasonPersistenceUnverified, persistErr.Error())
		}
	}

	timer.RecordStage("total")
	metrics.RecordRun("ok")
	metrics.RecordPersistedRows(inserted)

	if o.logger != nil {
		o.logger.WithFields(logFields.Duration(timer.Elapsed()).ToLogrus()).Info("run_match completed")
	}

	return &RunResult{Payload: payload, Inserted: inserted}, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, project *types.Project, topK int) ([]types.Candidate, error) {
	_, span := tracer.Start(ctx, "retrieve")
	defer span.End()
	return o.retriever.Retrieve(ctx, project, topK)
}

func (o *Orchestrator) score(ctx context.Context, project *types.Project, candidates []types.Candidate, weights types.Weights) ([]types.RankedResult, error) {
	_, span := tracer.Start(ctx, "score")
	defer span.End()
	return o.scorer.ScoreAll(ctx, project, candidates, weights)
}

func (o *Orchestrator) calibrateStage(ctx context.Context, ranked []types.RankedResult, strategy types.CalibrationStrategy) {
	_, span := tracer.Start(ctx, "calibrate")
	defer span.End()
	calibrate.Calibrate(ranked, strategy)
}

func (o *Orchestrator) deriveViolations(ctx context.Context, project *types.Project, ranked []types.RankedResult, metadataByRef map[string]map[string]interface{}) {
	_, span := tracer.Start(ctx, "violations")
	defer span.End()
	for i := range ranked {
		metadata, ok := metadataByRef[ranked[i].ProgramRef]
		if !ok {
			continue
		}
		ranked[i].Program = types.ProgramSummaryFromMetadata(ranked[i].ProgramRef, metadata)
		vs, err := o.evaluator.Derive(ctx, project, metadata)
		if err != nil {
			if o.logger != nil {
				o.logger.WithFields(sharedlogging.NewFields().
					Component("orchestrator").
					Operation("derive_violations").
					Error(err).
					ToLogrus()).Warn("violation derivation failed for candidate")
			}
			continue
		}
		ranked[i].Violations = vs
	}
}

func candidateMetadataByRef(candidates []types.Candidate) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(candidates))
	for _, c := range candidates {
		ref := c.ProgramRef
		if ref == "" {
			ref = types.IdentifyProgram(c.Metadata)
		}
		if ref != "" {
			out[ref] = c.Metadata
		}
	}
	return out
}

func (o *Orchestrator) persist(ctx context.Context, projectID, projectSlug string, runAt time.Time, ranked []types.RankedResult) (int, error) {
	_, span := tracer.Start(ctx, "persist")
	defer span.End()

	rows := make([]types.MatchRun, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, types.FromRankedResult(projectID, projectSlug, r, runAt))
	}

	return o.persister.Persist(ctx, rows)
}

func joinDiagnostic(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}
