package types

// Project is a project record as presented to the retriever, scorer,
// calibrator, and violation deriver. It is owned by the project-CRUD
// surface; the matcher treats it as a read-only input.
type Project struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Stage       string   `json:"stage"`
	Sectors     []string `json:"sectors"`
	Goals       []string `json:"goals"`
	FundingNeed float64  `json:"funding_need"`
}

// Validate rejects an obviously malformed project before any LLM call is
// made (InputError in the matcher's error taxonomy).
func (p *Project) Validate() []string {
	var problems []string

	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if len(p.Sectors) == 0 {
		problems = append(problems, "sectors must not be empty")
	}
	if p.Stage != "" && !IsValidStage(p.Stage) {
		problems = append(problems, "stage is not a recognized stage ladder entry: "+p.Stage)
	}
	if p.FundingNeed < 0 {
		problems = append(problems, "funding_need must be >= 0")
	}

	return problems
}

// QueryText builds the single string the retriever sends to the vector
// store: name, description, sectors, stage, funding need, and goals.
func (p *Project) QueryText() string {
	out := p.Name
	if p.Description != "" {
		out += "\n" + p.Description
	}
	if len(p.Sectors) > 0 {
		out += "\nSectors: " + joinOrEmpty(p.Sectors)
	}
	if p.Stage != "" {
		out += "\nStage: " + p.Stage
	}
	out += "\nFundingNeed: " + formatFloat(p.FundingNeed)
	if len(p.Goals) > 0 {
		out += "\nGoals: " + joinOrEmpty(p.Goals)
	}
	return out
}
