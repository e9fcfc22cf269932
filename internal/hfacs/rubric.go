// Package hfacs holds the HFACS evidence rubric: the closed table of
// evidence tags, the four severity levels they roll up into, and the
// scoring/winner-selection rules used to turn a set of tags into a
// classification.
package hfacs

// Level is one of the four HFACS severity levels, ordered from the most
// direct (unsafe acts) to the most systemic (organizational influences).
type Level int

const (
	LevelUnsafeAct Level = iota + 1
	LevelPrecondition
	LevelSupervision
	LevelOrganizational
)

// NoFault is the sentinel category returned when no evidence scored.
const NoFault = "No Fault"

// Levels returns all levels in ascending order.
func Levels() []Level {
	return []Level{LevelUnsafeAct, LevelPrecondition, LevelSupervision, LevelOrganizational}
}

// String returns the canonical report name for the level.
func (l Level) String() string {
	switch l {
	case LevelUnsafeAct:
		return "Level 1: Unsafe Acts"
	case LevelPrecondition:
		return "Level 2: Preconditions for Unsafe Acts"
	case LevelSupervision:
		return "Level 3: Unsafe Supervision"
	case LevelOrganizational:
		return "Level 4: Organizational Influences"
	default:
		return "Unknown"
	}
}

// entry is one rubric row: the level a tag belongs to and its weight.
type entry struct {
	level  Level
	weight int
}

// Rubric is an immutable mapping from evidence tag to (level, weight).
// It is safe for concurrent use; nothing mutates it after construction.
type Rubric struct {
	entries map[string]entry
	tags    []string // stable enumeration order
}

// Lookup returns the level and weight for a tag, or ok=false for tags
// outside the rubric.
func (r *Rubric) Lookup(tag string) (Level, int, bool) {
	e, ok := r.entries[tag]
	return e.level, e.weight, ok
}

// Tags returns every tag in the rubric in a stable order. Callers must not
// modify the returned slice.
func (r *Rubric) Tags() []string {
	return r.tags
}

// Default returns the standard HFACS rubric.
func Default() *Rubric {
	rows := []struct {
		tag    string
		level  Level
		weight int
	}{
		{"L1_ILL_STRUCTURED_DECISIONS", LevelUnsafeAct, 30},
		{"L1_CHOICE_DECISIONS", LevelUnsafeAct, 25},
		{"L1_RULE_BASED_DECISIONS", LevelUnsafeAct, 20},
		{"L1_ATTENTION_FAILURES", LevelUnsafeAct, 15},
		{"L1_MEMORY_FAILURES", LevelUnsafeAct, 15},
		{"L1_TECHNIQUE_ERRORS", LevelUnsafeAct, 20},
		{"L1_MISPERCEPTIONS", LevelUnsafeAct, 25},
		{"L1_MISJUDGMENTS", LevelUnsafeAct, 25},
		{"L1_FAILED_TO_COMPLY_MANUALS", LevelUnsafeAct, 30},
		{"L1_VIOLATED_TRAINING_RULES", LevelUnsafeAct, 30},
		{"L1_VIOLATION_OF_ORDERS_SOPS", LevelUnsafeAct, 35},
		{"L1_PERFORMED_UNAUTHORIZED_OPERATION", LevelUnsafeAct, 40},
		{"L1_ACCEPTED_UNAUTHORIZED_HAZARD", LevelUnsafeAct, 40},
		{"L1_NOT_CURRENT_QUALIFIED_VIOLATION", LevelUnsafeAct, 35},

		{"L2_WEATHER", LevelPrecondition, 15},
		{"L2_LIGHTING", LevelPrecondition, 10},
		{"L2_NOISE", LevelPrecondition, 10},
		{"L2_HEAT", LevelPrecondition, 10},
		{"L2_VIBRATION", LevelPrecondition, 10},
		{"L2_EQUIPMENT_AND_CONTROLS", LevelPrecondition, 20},
		{"L2_AUTOMATION_RELIABILITY", LevelPrecondition, 20},
		{"L2_TASK_PROCEDURE_DESIGN", LevelPrecondition, 25},
		{"L2_MANUALS_CHECKLIST_DESIGN", LevelPrecondition, 25},
		{"L2_INTERFACES_AND_DISPLAYS", LevelPrecondition, 20},
		{"L2_STRESS", LevelPrecondition, 15},
		{"L2_COMPLACENCY", LevelPrecondition, 20},
		{"L2_OVERCONFIDENCE", LevelPrecondition, 20},
		{"L2_MENTAL_FATIGUE", LevelPrecondition, 20},
		{"L2_DISTRACTION", LevelPrecondition, 15},
		{"L2_CONFUSION", LevelPrecondition, 15},
		{"L2_PHYSICAL_FATIGUE", LevelPrecondition, 25},
		{"L2_VISUAL_ILLUSIONS", LevelPrecondition, 15},
		{"L2_HYPOXIA", LevelPrecondition, 30},
		{"L2_MEDICAL_ILLNESS", LevelPrecondition, 20},
		{"L2_VISUAL_LIMITATIONS", LevelPrecondition, 15},
		{"L2_HEARING_LIMITATION", LevelPrecondition, 15},
		{"L2_NOT_CURRENT_QUALIFIED_LIMITATION", LevelPrecondition, 25},
		{"L2_INCOMPATIBLE_PHYSICAL_CAPABILITY", LevelPrecondition, 20},
		{"L2_INCOMPATIBLE_INTELLIGENCE_APTITUDE", LevelPrecondition, 20},
		{"L2_FAILED_TO_CONDUCT_ADEQUATE_BRIEF", LevelPrecondition, 25},
		{"L2_LACK_TO_TEAMWORK", LevelPrecondition, 25},
		{"L2_POOR_COMMUNICATION_COORDINATION", LevelPrecondition, 25},
		{"L2_FAILURE_OF_LEADERSHIP", LevelPrecondition, 30},
		{"L2_CREW_REST_REQUIREMENTS", LevelPrecondition, 20},
		{"L2_BOTTLE_TO_BRIEF_RULES", LevelPrecondition, 20},
		{"L2_SELF_MEDICATING", LevelPrecondition, 25},
		{"L2_POOR_DIETARY_PRACTICE", LevelPrecondition, 10},
		{"L2_OVEREXERTION_WHILE_OFF_DUTY", LevelPrecondition, 10},
		{"L2_INADEQUATE_PREPARATION_SKILL", LevelPrecondition, 25},

		{"L3_FAILURE_TO_ADMINISTER_PROPER_TRAINING", LevelSupervision, 35},
		{"L3_LACK_OF_PROFESSIONAL_GUIDANCE", LevelSupervision, 30},
		{"L3_FAILURE_TO_PROVIDE_OVERSIGHT", LevelSupervision, 35},
		{"L3_RISK_OUTWEIGHS_BENEFITS", LevelSupervision, 30},
		{"L3_EXCESSIVE_TASKING_WORKLOAD", LevelSupervision, 25},
		{"L3_POOR_CREW_PAIRING", LevelSupervision, 25},
		{"L3_FAILURE_TO_CORRECT_INAPPROPRIATE_BEHAVIOR", LevelSupervision, 30},
		{"L3_FAILURE_TO_CORRECT_A_SAFETY_HAZARD", LevelSupervision, 50},
		{"L3_FAILED_TO_ENFORCE_THE_RULES", LevelSupervision, 35},
		{"L3_AUTHORIZED_UNNECESSARY_HAZARD", LevelSupervision, 40},
		{"L3_AUTHORIZED_UNQUALIFIED_CREW_FOR_FLIGHT", LevelSupervision, 45},

		{"L4_HUMAN_RESOURCES", LevelOrganizational, 35},
		{"L4_MONETARY_RESOURCES", LevelOrganizational, 40},
		{"L4_EQUIPMENT_FACILITY_RESOURCES", LevelOrganizational, 35},
		{"L4_STRUCTURE", LevelOrganizational, 30},
		{"L4_POLICIES", LevelOrganizational, 40},
		{"L4_CULTURE", LevelOrganizational, 60},
		{"L4_OPERATIONS_PROCESS", LevelOrganizational, 35},
		{"L4_PROCEDURES_PROCESS", LevelOrganizational, 35},
		{"L4_OVERSIGHT_PROCESS", LevelOrganizational, 40},
	}

	r := &Rubric{
		entries: make(map[string]entry, len(rows)),
		tags:    make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		r.entries[row.tag] = entry{level: row.level, weight: row.weight}
		r.tags = append(r.tags, row.tag)
	}
	return r
}
