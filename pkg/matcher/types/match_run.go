package types

import "time"

// RunState names a point in a MatchRun's lifecycle.
type RunState string

const (
	RunPending    RunState = "pending"
	RunRetrieved  RunState = "retrieved"
	RunScored     RunState = "scored"
	RunCalibrated RunState = "calibrated"
	RunPackaged   RunState = "packaged"
	RunPersisted  RunState = "persisted"
)

// Weights is the (rule, content, goal) fusion weight tuple; callers must
// ensure it sums to 1.0.
type Weights struct {
	Rule    float64 `json:"rule"`
	Content float64 `json:"content"`
	Goal    float64 `json:"goal"`
}

// BalancedWeights is the default weight tuple.
func BalancedWeights() Weights {
	return Weights{Rule: 0.45, Content: 0.35, Goal: 0.20}
}

// ContentHeavyWeights favors embedding similarity over the rule and goal
// dimensions.
func ContentHeavyWeights() Weights {
	return Weights{Rule: 0.30, Content: 0.50, Goal: 0.20}
}

// Sum returns rule + content + goal.
func (w Weights) Sum() float64 {
	return w.Rule + w.Content + w.Goal
}

// CalibrationStrategy names a presentation-score mapping.
type CalibrationStrategy string

const (
	CalibrationRelativeMinMax CalibrationStrategy = "relative_minmax"
	CalibrationAffineFloor    CalibrationStrategy = "affine_floor"
	CalibrationSigmoid        CalibrationStrategy = "sigmoid"
	CalibrationNone           CalibrationStrategy = "none"
)

// RunMeta carries the metadata the orchestrator attaches to a run's
// payload: the parameters actually used, so persisted rows and HTTP
// responses are self-describing even as defaults change over time.
type RunMeta struct {
	RunAt               time.Time           `json:"run_at"`
	Weights             Weights             `json:"weights"`
	TopK                int                 `json:"top_k"`
	RetrievalMultiplier int                 `json:"retrieval_multiplier"`
	Calibration         CalibrationStrategy `json:"calibration"`
	LLMModel            string              `json:"llm_model"`
	EmbedModel          string              `json:"embed_model"`
	Diagnostic          string              `json:"diagnostic,omitempty"`
}

// RunAtString renders RunAt as an ISO-8601 UTC instant with a trailing Z,
// the wire format the persister and HTTP surface require.
func (m RunMeta) RunAtString() string {
	return m.RunAt.UTC().Format("2006-01-02T15:04:05.000Z")
}

// MatchPayload is the complete output of one orchestrator run.
type MatchPayload struct {
	ProjectRef string         `json:"project_ref"`
	Project    Project        `json:"project"`
	Meta       RunMeta        `json:"meta"`
	Results    []RankedResult `json:"results"`
}

// MatchRun is the persistence unit written by the result persister: one
// row per (project_id, project_slug, run_at, rank).
type MatchRun struct {
	ProjectID     string    `db:"project_id"`
	ProjectSlug   string    `db:"project_slug"`
	ProgramID     string    `db:"program_id"`
	ProgramName   string    `db:"program_name"`
	SourceURL     string    `db:"source_url"`
	Rank          int       `db:"rank"`
	RunAt         time.Time `db:"run_at"`
	ScoreRule     float64   `db:"score_rule"`
	ScoreContent  float64   `db:"score_content"`
	ScoreGoal     float64   `db:"score_goal"`
	ScoreFinalRaw float64   `db:"score_final_raw"`
	ScoreFinalCal float64   `db:"score_final_cal"`
	RawDistance   float64   `db:"raw_distance"`
	SubsSector    float64   `db:"subs_sector"`
	SubsStage     float64   `db:"subs_stage"`
	SubsFunding   float64   `db:"subs_funding"`
	Reasons       []string  `db:"reasons"`
	Improvements  []string  `db:"improvements"`
	EvidenceProj  []string  `db:"evidence_project"`
	EvidenceProg  []string  `db:"evidence_program"`
	CreatedAt     time.Time `db:"created_at"`
}

// RequiredColumns is the strict required-field subset the persister
// retries with when the backing schema is missing an optional column.
var RequiredColumns = []string{
	"project_id", "project_slug", "program_id", "program_name", "source_url",
	"rank", "score_rule", "score_content", "score_goal", "score_final_raw",
	"score_final_cal", "raw_distance", "run_at",
}

// FromRankedResult builds a MatchRun row from a scored result, a project
// reference, and the run's shared run_at timestamp.
func FromRankedResult(projectID, projectSlug string, r RankedResult, runAt time.Time) MatchRun {
	programID := r.ProgramRef
	programName := ""
	sourceURL := ""
	if r.Program != nil {
		if r.Program.ID != "" {
			programID = r.Program.ID
		}
		programName = r.Program.Name
		sourceURL = r.Program.URL
	}

	evidenceProject := capEvidence(r.Evidence.Project)
	evidenceProgram := capEvidence(r.Evidence.Program)

	return MatchRun{
		ProjectID:     projectID,
		ProjectSlug:   projectSlug,
		ProgramID:     programID,
		ProgramName:   programName,
		SourceURL:     sourceURL,
		Rank:          r.Rank,
		RunAt:         runAt,
		ScoreRule:     r.Scores.Rule,
		ScoreContent:  r.Scores.Content,
		ScoreGoal:     r.Scores.Goal,
		ScoreFinalRaw: r.Scores.FinalRaw,
		ScoreFinalCal: r.Scores.FinalCal,
		RawDistance:   r.RawDistance,
		SubsSector:    r.Subscores.Sector,
		SubsStage:     r.Subscores.Stage,
		SubsFunding:   r.Subscores.Funding,
		Reasons:       r.Reasons,
		Improvements:  r.Improvements,
		EvidenceProj:  evidenceProject,
		EvidenceProg:  evidenceProgram,
	}
}

func capEvidence(items []string) []string {
	if len(items) <= 2 {
		return items
	}
	return items[:2]
}
