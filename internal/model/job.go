package model

import (
	"fmt"
	"time"
)

// ProductionJob is one unit of print work. It owns an ordered collection of
// ProductionStage records; its aggregate fields (ProductionStatus,
// CompletionPercentage, ActualCompletion) mirror stage progress and are
// written only by the completion tracker.
type ProductionJob struct {
	ID                   string           `json:"id"`
	JobNumber            string           `json:"jobNumber"`
	BranchID             string           `json:"branchId,omitempty"`
	JobType              JobType          `json:"jobType"`
	ProductionStatus     ProductionStatus `json:"productionStatus"`
	CompletionPercentage int              `json:"completionPercentage"`
	StartedAt            *time.Time       `json:"startedAt,omitempty"`
	ActualCompletion     *time.Time       `json:"actualCompletion,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// ProductionStage is one step within a job's pipeline. StageOrder is 1-based
// and unique within the job. Once created a stage is never deleted; only its
// status advances.
type ProductionStage struct {
	ID                       string                 `json:"id"`
	JobID                    string                 `json:"jobId"`
	StageOrder               int                    `json:"stageOrder"`
	StageName                StageName              `json:"stageName"`
	StageStatus              StageStatus            `json:"stageStatus"`
	RequiresCustomerApproval bool                   `json:"requiresCustomerApproval"`
	EstimatedDuration        int                    `json:"estimatedDuration"` // minutes
	ActualDuration           *int                   `json:"actualDuration,omitempty"`
	StartedAt                *time.Time             `json:"startedAt,omitempty"`
	CompletedAt              *time.Time             `json:"completedAt,omitempty"`
	CustomerApprovedAt       *time.Time             `json:"customerApprovedAt,omitempty"`
	Notes                    string                 `json:"notes,omitempty"`
	StageData                map[string]interface{} `json:"stageData,omitempty"`
	RejectionReason          *string                `json:"rejectionReason,omitempty"`
	UpdatedBy                string                 `json:"updatedBy,omitempty"`
	ApprovedBy               string                 `json:"approvedBy,omitempty"`
	CreatedAt                time.Time              `json:"createdAt"`
	UpdatedAt                time.Time              `json:"updatedAt"`
}

// AppendNote adds an operator action to the stage's append-only note log.
func (s *ProductionStage) AppendNote(actor, note string, at time.Time) {
	if note == "" {
		return
	}
	entry := fmt.Sprintf("[%s] %s: %s", at.UTC().Format(time.RFC3339), actor, note)
	if s.Notes == "" {
		s.Notes = entry
		return
	}
	s.Notes += "\n" + entry
}

// MergeStageData merges operator-supplied key/value data into the stage's
// existing payload. Existing keys are overwritten.
func (s *ProductionStage) MergeStageData(data map[string]interface{}) {
	if len(data) == 0 {
		return
	}
	if s.StageData == nil {
		s.StageData = make(map[string]interface{}, len(data))
	}
	for k, v := range data {
		s.StageData[k] = v
	}
}

// Overdue reports whether the stage has been running longer than its
// estimated duration. Derived read-only signal for reporting; it never
// forces a transition.
func (s *ProductionStage) Overdue(now time.Time) bool {
	if s.StartedAt == nil || s.StageStatus.Terminal() || s.EstimatedDuration <= 0 {
		return false
	}
	deadline := s.StartedAt.Add(time.Duration(s.EstimatedDuration) * time.Minute)
	return now.After(deadline)
}

// EntryStatus returns the status a stage should enter when the sequencer
// makes it reachable: approval-gated stages wait for a decision, the rest
// wait for an operator to start them.
func (s *ProductionStage) EntryStatus() StageStatus {
	if s.RequiresCustomerApproval {
		return StageStatusRequiresApproval
	}
	return StageStatusReady
}
