package model

import "time"

// CreateJobRequest represents the request to register a print job for
// production tracking.
type CreateJobRequest struct {
	JobNumber string  `json:"jobNumber" validate:"required,max=64"`
	JobType   JobType `json:"jobType" validate:"required,oneof=business_cards brochures flyers posters banners default"`
	BranchID  string  `json:"branchId" validate:"omitempty,max=64"`
}

// StageActionRequest carries optional operator notes for start/resume/approve.
type StageActionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// CompleteStageRequest carries notes plus an optional structured payload
// merged into the stage's data on completion.
type CompleteStageRequest struct {
	Notes     string                 `json:"notes" validate:"omitempty,max=2000"`
	StageData map[string]interface{} `json:"stageData" validate:"omitempty"`
}

// ReasonRequest carries a mandatory reason (reject, hold).
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// StageResponse is the read shape of a production stage.
type StageResponse struct {
	ID                       string                 `json:"id"`
	JobID                    string                 `json:"jobId"`
	StageOrder               int                    `json:"stageOrder"`
	StageName                StageName              `json:"stageName"`
	StageStatus              StageStatus            `json:"stageStatus"`
	RequiresCustomerApproval bool                   `json:"requiresCustomerApproval"`
	EstimatedDuration        int                    `json:"estimatedDuration"`
	ActualDuration           *int                   `json:"actualDuration,omitempty"`
	StartedAt                *time.Time             `json:"startedAt,omitempty"`
	CompletedAt              *time.Time             `json:"completedAt,omitempty"`
	CustomerApprovedAt       *time.Time             `json:"customerApprovedAt,omitempty"`
	Notes                    string                 `json:"notes,omitempty"`
	StageData                map[string]interface{} `json:"stageData,omitempty"`
	RejectionReason          *string                `json:"rejectionReason,omitempty"`
	UpdatedBy                string                 `json:"updatedBy,omitempty"`
	ApprovedBy               string                 `json:"approvedBy,omitempty"`
	Overdue                  bool                   `json:"overdue"`
}

// NewStageResponse builds the read shape, deriving the overdue flag.
func NewStageResponse(s *ProductionStage, now time.Time) StageResponse {
	return StageResponse{
		ID:                       s.ID,
		JobID:                    s.JobID,
		StageOrder:               s.StageOrder,
		StageName:                s.StageName,
		StageStatus:              s.StageStatus,
		RequiresCustomerApproval: s.RequiresCustomerApproval,
		EstimatedDuration:        s.EstimatedDuration,
		ActualDuration:           s.ActualDuration,
		StartedAt:                s.StartedAt,
		CompletedAt:              s.CompletedAt,
		CustomerApprovedAt:       s.CustomerApprovedAt,
		Notes:                    s.Notes,
		StageData:                s.StageData,
		RejectionReason:          s.RejectionReason,
		UpdatedBy:                s.UpdatedBy,
		ApprovedBy:               s.ApprovedBy,
		Overdue:                  s.Overdue(now),
	}
}

// JobResponse is the read shape of a production job.
type JobResponse struct {
	ID                   string           `json:"id"`
	JobNumber            string           `json:"jobNumber"`
	BranchID             string           `json:"branchId,omitempty"`
	JobType              JobType          `json:"jobType"`
	ProductionStatus     ProductionStatus `json:"productionStatus"`
	CompletionPercentage int              `json:"completionPercentage"`
	StartedAt            *time.Time       `json:"startedAt,omitempty"`
	ActualCompletion     *time.Time       `json:"actualCompletion,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// NewJobResponse builds the read shape of a job.
func NewJobResponse(j *ProductionJob) JobResponse {
	return JobResponse{
		ID:                   j.ID,
		JobNumber:            j.JobNumber,
		BranchID:             j.BranchID,
		JobType:              j.JobType,
		ProductionStatus:     j.ProductionStatus,
		CompletionPercentage: j.CompletionPercentage,
		StartedAt:            j.StartedAt,
		ActualCompletion:     j.ActualCompletion,
		CreatedAt:            j.CreatedAt,
	}
}

// TransitionResponse is returned by every stage transition endpoint.
type TransitionResponse struct {
	Success bool          `json:"success"`
	Stage   StageResponse `json:"stage"`
}

// StartProductionResponse is returned when a job enters production.
type StartProductionResponse struct {
	Success bool            `json:"success"`
	Job     JobResponse     `json:"job"`
	Stages  []StageResponse `json:"stages"`
}
