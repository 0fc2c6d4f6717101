package conceptgraph

// Concept is a single node of the curriculum graph.
// The ID is a stable slug; the remaining fields are display metadata.
type Concept struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Topic   string `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// DisplayName returns the concept name, falling back to a title-cased slug.
func (c Concept) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return humanize(c.ID)
}

// Edge declares that ConceptID depends on PrereqID.
type Edge struct {
	ConceptID string `json:"concept_id" yaml:"concept"`
	PrereqID  string `json:"prereq_id" yaml:"prereq"`
}

// humanize turns "integration_by_parts" into "Integration By Parts".
func humanize(slug string) string {
	out := []byte(slug)
	upper := true
	for i, c := range out {
		switch {
		case c == '_' || c == '-':
			out[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
			upper = false
		default:
			upper = false
		}
	}
	return string(out)
}
