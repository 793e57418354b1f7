package orchestrator

// Role is a generating role in the pipeline and the section it owns.
type Role struct {
	SectionID string
	Name      string
	Focus     string

	// Reviewed sections are handed back by the consistency reviewer.
	Reviewed bool
}

// Section ids.
const (
	SectionProcessAreas     = "process-areas"
	SectionProcessDesign    = "process-design"
	SectionSolutionDesign   = "solution-design"
	SectionConfiguration    = "configuration"
	SectionTestingStrategy  = "testing-strategy"
	SectionChangeManagement = "change-management"
	SectionReferenceObjects = "reference-objects"

	// SectionDocument holds single-pass output that had no usable headings.
	SectionDocument = "document"
)

// Task names for the finalize phase.
const (
	TaskConsistencyReview = "consistency-review"
)

// DefaultSpecialists are the four fixed specialist roles.
var DefaultSpecialists = []Role{
	{
		SectionID: SectionProcessDesign,
		Name:      "process analyst",
		Focus:     "to-be business process flow, process steps, roles and hand-offs",
		Reviewed:  true,
	},
	{
		SectionID: SectionSolutionDesign,
		Name:      "solution architect",
		Focus:     "SAP solution components, integrations, data flow and extensions",
		Reviewed:  true,
	},
	{
		SectionID: SectionConfiguration,
		Name:      "configuration specialist",
		Focus:     "customizing settings, organizational structure, master data and IMG activities",
		Reviewed:  true,
	},
	{
		SectionID: SectionTestingStrategy,
		Name:      "test manager",
		Focus:     "test scenarios, test data, acceptance criteria and regression scope",
	},
}

// DefaultSupplementary produces the section that only needs the shared
// context.
var DefaultSupplementary = Role{
	SectionID: SectionChangeManagement,
	Name:      "change manager",
	Focus:     "stakeholder impact, training, communication and cut-over readiness",
}

// DocumentPlan orders the sections of a generated document.
var DocumentPlan = MergePlan{
	Strategy: MergeOverlay,
	SectionOrder: []string{
		SectionProcessAreas,
		SectionProcessDesign,
		SectionSolutionDesign,
		SectionConfiguration,
		SectionTestingStrategy,
		SectionChangeManagement,
		SectionReferenceObjects,
	},
}
