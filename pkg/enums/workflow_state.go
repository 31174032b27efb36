package enums

// WorkflowState is a marking-workflow stage as reported by the platform.
type WorkflowState string

const (
	WorkflowInMarking       WorkflowState = "inmarking"
	WorkflowReadyForReview  WorkflowState = "readyforreview"
	WorkflowInReview        WorkflowState = "inreview"
	WorkflowReadyForRelease WorkflowState = "readyforrelease"
	WorkflowReleased        WorkflowState = "released"
)

var workflowLabels = map[WorkflowState]string{
	WorkflowInMarking:       "Marking",
	WorkflowReadyForReview:  "Completed",
	WorkflowInReview:        "In review",
	WorkflowReadyForRelease: "Ready for release",
	WorkflowReleased:        "Released",
}

// Label returns the CRM-facing status label for the state. Unknown states
// return "" and false; callers omit the status field in that case.
func (w WorkflowState) Label() (string, bool) {
	label, ok := workflowLabels[w]
	return label, ok
}
