package types

// ProgramIdentityKeys is the documented priority order identify_program
// tries when resolving a candidate's program reference from duck-typed
// metadata.
var ProgramIdentityKeys = []string{"id", "program_id", "slug", "uuid", "code"}

// IdentifyProgram resolves a stable reference for metadata by trying
// ProgramIdentityKeys in order, falling back to source_path.
func IdentifyProgram(metadata map[string]interface{}) string {
	for _, key := range ProgramIdentityKeys {
		if v, ok := metadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if v, ok := metadata["source_path"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Candidate is an intermediate result produced by the retriever: a
// program reference paired with its raw cosine distance from the query.
type Candidate struct {
	ProgramRef string
	Metadata   map[string]interface{}
	Distance   float64 // cosine distance in [0, 2]
}
