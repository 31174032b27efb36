package sync

import "time"

// Field sets per record kind are append-only: downstream CRM schemas depend
// on every field that has ever been sent for a kind.

// APIRef is the one-level nested reference the CRM expects for a related
// candidate or assessor.
type APIRef struct {
	APIID string `json:"APIID__c"`
}

type QuizRecord struct {
	Course         string `json:"Course__c"`
	Candidate      APIRef `json:"Candidate__r"`
	Title          string `json:"Title__c"`
	CompletionDate string `json:"Completion_Date__c"`
	QuizURL        string `json:"Quiz_URL__c"`
	QuizID         string `json:"Quiz_Id__c"`
	Grade          string `json:"Grade__c"`
}

type EnrolmentRecord struct {
	Candidate       APIRef `json:"Candidate__r"`
	Course          string `json:"Course__c"`
	DateOfEnrolment string `json:"Date_Of_Enrolment__c"`
}

type AssessmentRecord struct {
	Candidate      APIRef `json:"Candidate__r"`
	Course         string `json:"Course__c"`
	AssessmentID   string `json:"Assessment_ID__c"`
	Title          string `json:"Title__c"`
	AssessmentURL  string `json:"Assessment_URL__c"`
	SubmissionDate string `json:"Submission_Date__c"`
}

// AssessorUpdate targets an existing Assessment record by external key; it
// is the only update-in-place payload.
type AssessorUpdate struct {
	Assessor APIRef `json:"Assessor__r"`
}

type GradeRecord struct {
	AssignedGrade  string `json:"Assigned_Grade__c"`
	Assessor       APIRef `json:"Assessor__r"`
	Course         string `json:"Course__c"`
	WorkflowStatus string `json:"Marking_Workflow_Status__c,omitempty"`
}

// timeLayout is the CRM's timestamp format: ISO 8601 without an offset.
const timeLayout = "2006-01-02T15:04:05"

func formatTimestamp(t time.Time) string {
	return t.Format(timeLayout)
}

// compositeAssessmentID builds the shared external key for an assessment:
// the same value whether produced at submission, marker allocation, or
// grading, so updates land on the record the submission created.
func compositeAssessmentID(candidateAPIID, assignmentIDNumber string) string {
	return candidateAPIID + "_" + assignmentIDNumber
}
