package types

// Program is a catalog entity produced by the extractor and consumed by
// the index, retriever, scorer, calibrator, and violation deriver.
type Program struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Objectives     string      `json:"objectives"`
	ObjectivesText string      `json:"objectives_text"`
	Goals          []string    `json:"goals"`
	Features       []string    `json:"features"`
	EligibilityMust []string   `json:"eligibility_must"`
	SectorTags     []string    `json:"sector_tags"`
	StageTags      []string    `json:"stage_tags"`
	FundingType    FundingType `json:"funding_type"`
	FundingMin     float64     `json:"funding_min"`
	FundingMax     float64     `json:"funding_max"`
	URL            string      `json:"url"`
	SourcePath     string      `json:"source_path"`
	LastUpdated    string      `json:"last_updated"`
	LaunchDate     string      `json:"launch_date"`
	ProgramType    string      `json:"program_type"`
}

// Validate checks Program's invariants: funding_min <= funding_max and
// stage_tags are all members of StageLadder. It does not mutate p.
func (p *Program) Validate() []string {
	var problems []string

	if p.FundingMin > p.FundingMax {
		problems = append(problems, "funding_min exceeds funding_max")
	}
	for _, tag := range p.StageTags {
		if !IsValidStage(tag) {
			problems = append(problems, "stage tag not in stage ladder: "+tag)
		}
	}
	if p.ID == "" {
		problems = append(problems, "id is required")
	}

	return problems
}

// Metadata projects p into a map of primitive-friendly values suitable for
// attaching to a vector index document, flattening nested slices to
// comma-joined strings.
func (p *Program) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"id":               p.ID,
		"name":             p.Name,
		"description":      p.Description,
		"objectives":       p.Objectives,
		"objectives_text":  p.ObjectivesText,
		"goals":            joinOrEmpty(p.Goals),
		"features":         joinOrEmpty(p.Features),
		"eligibility_must": joinOrEmpty(p.EligibilityMust),
		"sector_tags":      joinOrEmpty(p.SectorTags),
		"stage_tags":       joinOrEmpty(p.StageTags),
		"funding_type":     string(p.FundingType),
		"funding_min":      p.FundingMin,
		"funding_max":      p.FundingMax,
		"url":              p.URL,
		"source_path":      p.SourcePath,
		"last_updated":     p.LastUpdated,
		"launch_date":      p.LaunchDate,
		"program_type":     p.ProgramType,
	}
}

func joinOrEmpty(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// IndexText concatenates the fields C2 feeds to the embedding model:
// name, description, objectives, objectives_text, goals, features,
// eligibility, sectors, and stages.
func (p *Program) IndexText() string {
	parts := []string{p.Name, p.Description, p.Objectives, p.ObjectivesText}
	parts = append(parts, p.Goals...)
	parts = append(parts, p.Features...)
	parts = append(parts, p.EligibilityMust...)
	parts = append(parts, p.SectorTags...)
	parts = append(parts, p.StageTags...)

	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += part
	}
	return out
}

// ProgramSummaryFromMetadata rebuilds the subset of Program fields that
// the persisted/presented result needs (id, name, url) from the
// duck-typed metadata map the retriever and scorer carry around, without
// requiring the full Program record to be re-fetched.
func ProgramSummaryFromMetadata(ref string, metadata map[string]interface{}) *Program {
	p := &Program{ID: ref}
	if v, ok := metadata["id"].(string); ok && v != "" {
		p.ID = v
	}
	if v, ok := metadata["name"].(string); ok {
		p.Name = v
	}
	if v, ok := metadata["url"].(string); ok {
		p.URL = v
	}
	return p
}
