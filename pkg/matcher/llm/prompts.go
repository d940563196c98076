package llm

import (
	"github.com/tmc/langchaingo/prompts"

	sharederrors "github.com/opportumatch/matcher/pkg/shared/errors"
)

// ExtractionSystemPrompt enumerates the field semantics the structured
// extraction call (C1) must follow: stage ladder normalization, funding
// type enumeration with a fallback to "in-kind", ISO date normalization,
// and slug-derived ids.
const ExtractionSystemPrompt = `You extract a structured program record from a source document, primarily in Arabic.
Respond with a strict JSON object only, no prose before or after.
Normalize stage mentions onto this closed ladder, in order: فكرة, MVP, إطلاق, تشغيل, نمو مبكر, نمو, توسع.
Normalize funding_type to one of: grant, loan, equity, in-kind. If no cash amount is mentioned, use in-kind.
Normalize all dates to ISO-8601 (YYYY-MM-DD).
Derive id as a lowercase, hyphenated slug of the program name.`

// ScoringSystemPrompt is the reply-contract prompt for the granular
// scorer (C5): six keys, numeric clamping, and the explicit "fit of this
// project to this ONE program" framing that keeps per-dimension evidence
// requirements honest.
const ScoringSystemPrompt = `You score how well ONE specific program fits ONE specific project, not the program's general merits.
Respond with a strict JSON object containing exactly these keys: sector_match, stage_match, funding_match, goal_alignment, reasons, improvements.
sector_match, stage_match, funding_match must each be one of: 0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0.
goal_alignment must be a number in [0, 1].
Use ASCII digits with a "." decimal separator; never Arabic-Indic digits.
When the program text gives no explicit evidence for a dimension, cap that dimension at 0.3 or below.
Partial or implicit evidence should score 0.4-0.7; explicit, stated match should score 0.8-1.0.
reasons and improvements are project-specific, 2 to 5 short items each, quoting a brief snippet from the program text where possible.
No keys outside the six listed. No text outside the JSON object.`

// scoringUserTemplate carries the per-candidate content: the project
// description and the condensed program text being judged against it.
const scoringUserTemplate = `Project:
{{.project_text}}

Program ({{.program_ref}}):
{{.program_text}}`

// BuildScoringPrompt renders the scoring user content for one candidate.
func BuildScoringPrompt(projectText, programRef, programText string) (string, error) {
	tmpl := prompts.NewPromptTemplate(scoringUserTemplate, []string{"project_text", "program_ref", "program_text"})
	rendered, err := tmpl.Format(map[string]interface{}{
		"project_text": projectText,
		"program_ref":  programRef,
		"program_text": programText,
	})
	if err != nil {
		return "", sharederrors.Wrapf(err, "failed to render scoring prompt for %s", programRef)
	}
	return rendered, nil
}

// extractionUserTemplate carries the source document into the extraction
// call, plus a free-form notes field mirroring the Python original's
// "ملاحظات إضافية" (additional notes) slot.
const extractionUserTemplate = `Source (Markdown):

{{.markdown}}

Additional notes: {{.notes}}`

// BuildExtractionPrompt renders the extraction user content for one
// source document.
func BuildExtractionPrompt(markdown, notes string) (string, error) {
	tmpl := prompts.NewPromptTemplate(extractionUserTemplate, []string{"markdown", "notes"})
	rendered, err := tmpl.Format(map[string]interface{}{
		"markdown": markdown,
		"notes":    notes,
	})
	if err != nil {
		return "", sharederrors.Wrapf(err, "failed to render extraction prompt")
	}
	return rendered, nil
}
