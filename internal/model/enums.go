package model

// Job types categorize which stage template a job is provisioned with
type JobType string

const (
	JobTypeBusinessCards JobType = "business_cards"
	JobTypeBrochures     JobType = "brochures"
	JobTypeFlyers        JobType = "flyers"
	JobTypePosters       JobType = "posters"
	JobTypeBanners       JobType = "banners"
	JobTypeDefault       JobType = "default"
)

var ValidJobTypes = []JobType{
	JobTypeBusinessCards, JobTypeBrochures, JobTypeFlyers,
	JobTypePosters, JobTypeBanners, JobTypeDefault,
}

// Job production status
type ProductionStatus string

const (
	ProductionStatusPending      ProductionStatus = "pending"
	ProductionStatusAssigned     ProductionStatus = "assigned"
	ProductionStatusDesignReview ProductionStatus = "design_review"
	ProductionStatusInProgress   ProductionStatus = "in_progress"
	ProductionStatusCompleted    ProductionStatus = "completed"
	ProductionStatusCancelled    ProductionStatus = "cancelled"
	ProductionStatusOnHold       ProductionStatus = "on_hold"
)

// Stage status
type StageStatus string

const (
	StageStatusPending          StageStatus = "pending"
	StageStatusReady            StageStatus = "ready"
	StageStatusInProgress       StageStatus = "in_progress"
	StageStatusRequiresApproval StageStatus = "requires_approval"
	StageStatusOnHold           StageStatus = "on_hold"
	StageStatusCompleted        StageStatus = "completed"
	StageStatusRejected         StageStatus = "rejected"
)

// Terminal reports whether no further transitions are defined from s.
func (s StageStatus) Terminal() bool {
	return s == StageStatusCompleted || s == StageStatusRejected
}

// Actionable reports whether an operator can currently act on a stage in
// this status (queue views group by this).
func (s StageStatus) Actionable() bool {
	switch s {
	case StageStatusReady, StageStatusInProgress, StageStatusRequiresApproval:
		return true
	}
	return false
}

// Stage names
type StageName string

const (
	StageDesignReview         StageName = "design_review"
	StageCustomerApproval     StageName = "customer_approval"
	StagePrePress             StageName = "pre_press"
	StagePrintingProcess      StageName = "printing_process"
	StageLargeFormatPrinting  StageName = "large_format_printing"
	StageCutting              StageName = "cutting"
	StageFolding              StageName = "folding"
	StageBinding              StageName = "binding"
	StageLamination           StageName = "lamination"
	StageFinishing            StageName = "finishing"
	StageQualityCheck         StageName = "quality_check"
	StagePackaging            StageName = "packaging"
)
