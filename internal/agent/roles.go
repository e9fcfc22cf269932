package agent

import (
	"fmt"
	"strings"
	"text/template"
)

// Context field names the role templates draw from.
const (
	FieldCombinedText       = "combined_text"
	FieldAllTags            = "all_evidence_tags"
	FieldOriginalEvidence   = "original_evidence"
	FieldSpecialistFindings = "specialist_findings"
)

// Role names for the standard panel.
const (
	RoleGeneralAnalyst     = "General Analyst"
	RoleTechOpsSpecialist  = "Tech/Ops Specialist"
	RoleMaintOrgSpecialist = "Maint/Org Specialist"
	RoleAdjudicator        = "Final Adjudicator"
)

// Role is a named prompt template plus the context fields it requires.
// Construct roles with NewRole so the template is parsed exactly once.
type Role struct {
	Name     string
	Required []string
	tmpl     *template.Template
}

// NewRole parses the template text and returns the role. The template is
// executed over a map of field name to text; referencing an absent field is
// an error at render time, not a silent blank.
func NewRole(name, templateText string, required ...string) (Role, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateText)
	if err != nil {
		return Role{}, fmt.Errorf("role %q: parse template: %w", name, err)
	}
	return Role{Name: name, Required: required, tmpl: tmpl}, nil
}

// render validates field presence and substitutes them into the template.
func (r Role) render(fields map[string]string) (string, error) {
	for _, name := range r.Required {
		if _, ok := fields[name]; !ok {
			return "", fmt.Errorf("role %q: %w: %q", r.Name, ErrMissingField, name)
		}
	}
	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, fields); err != nil {
		return "", fmt.Errorf("role %q: render template: %w", r.Name, err)
	}
	return sb.String(), nil
}

const responseRules = `Respond with ONLY a single line: a comma-separated list of evidence tag
identifiers drawn from the allowed set, or the single word NONE if no tag
applies. No prose, no explanation, no markdown.`

const generalAnalystTemplate = `You are an aviation human-factors analyst reviewing incident evidence.
Identify every HFACS evidence tag supported by the material below, across
all four levels (unsafe acts, preconditions, supervision, organizational).

ALLOWED TAGS: {{.all_evidence_tags}}

EVIDENCE:
{{.combined_text}}

` + responseRules

const techOpsSpecialistTemplate = `You are a flight operations and aircraft systems specialist. From the
evidence below, identify HFACS tags related to crew actions, equipment and
controls, automation, procedures in the cockpit, and crew coordination.
Ignore purely organizational matters.

ALLOWED TAGS: {{.all_evidence_tags}}

EVIDENCE:
{{.combined_text}}

` + responseRules

const maintOrgSpecialistTemplate = `You are a maintenance and safety-management specialist. From the evidence
below, identify HFACS tags related to maintenance practice, supervision,
oversight, resourcing, and organizational process. Ignore in-cockpit
handling unless it points to a systemic cause.

ALLOWED TAGS: {{.all_evidence_tags}}

EVIDENCE:
{{.combined_text}}

` + responseRules

const adjudicatorTemplate = `You are the final adjudicator of an aviation incident review panel. Three
specialists have proposed HFACS evidence tags. Weigh their findings against
the original evidence and decide the final tag set. Keep only tags the
evidence genuinely supports; resolve specialist disagreements.

ALLOWED TAGS: {{.all_evidence_tags}}

ORIGINAL EVIDENCE:
{{.original_evidence}}

SPECIALIST FINDINGS:
{{.specialist_findings}}

` + responseRules

// SpecialistRoles returns the fixed specialist panel in its canonical
// order.
func SpecialistRoles() []Role {
	return []Role{
		mustRole(RoleGeneralAnalyst, generalAnalystTemplate, FieldCombinedText, FieldAllTags),
		mustRole(RoleTechOpsSpecialist, techOpsSpecialistTemplate, FieldCombinedText, FieldAllTags),
		mustRole(RoleMaintOrgSpecialist, maintOrgSpecialistTemplate, FieldCombinedText, FieldAllTags),
	}
}

// AdjudicatorRole returns the adjudicator role.
func AdjudicatorRole() Role {
	return mustRole(RoleAdjudicator, adjudicatorTemplate,
		FieldOriginalEvidence, FieldSpecialistFindings, FieldAllTags)
}

func mustRole(name, text string, required ...string) Role {
	role, err := NewRole(name, text, required...)
	if err != nil {
		panic(err)
	}
	return role
}
