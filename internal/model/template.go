package model

// StageTemplate describes one entry of a job type's default pipeline.
type StageTemplate struct {
	Name                     StageName
	EstimatedDuration        int // minutes
	RequiresCustomerApproval bool
}

// stageTemplates maps a job type to its ordered default pipeline. Stages are
// numbered 1..N in slice order when a job is provisioned. The "default"
// entry is the fallback for unknown job types and must always be present.
var stageTemplates = map[JobType][]StageTemplate{
	JobTypeBusinessCards: {
		{StageDesignReview, 120, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 60, false},
		{StagePrintingProcess, 120, false},
		{StageCutting, 45, false},
		{StageQualityCheck, 30, false},
		{StagePackaging, 30, false},
	},
	JobTypeBrochures: {
		{StageDesignReview, 240, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 90, false},
		{StagePrintingProcess, 180, false},
		{StageFolding, 60, false},
		{StageBinding, 90, false},
		{StageQualityCheck, 45, false},
		{StagePackaging, 30, false},
	},
	JobTypeFlyers: {
		{StageDesignReview, 120, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 45, false},
		{StagePrintingProcess, 90, false},
		{StageCutting, 30, false},
		{StagePackaging, 30, false},
	},
	JobTypePosters: {
		{StageDesignReview, 180, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 60, false},
		{StageLargeFormatPrinting, 120, false},
		{StageLamination, 60, false},
		{StageQualityCheck, 30, false},
		{StagePackaging, 30, false},
	},
	JobTypeBanners: {
		{StageDesignReview, 180, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 60, false},
		{StageLargeFormatPrinting, 150, false},
		{StageFinishing, 90, false},
		{StageQualityCheck, 30, false},
		{StagePackaging, 45, false},
	},
	JobTypeDefault: {
		{StageDesignReview, 180, false},
		{StageCustomerApproval, 1440, true},
		{StagePrePress, 60, false},
		{StagePrintingProcess, 120, false},
		{StageFinishing, 60, false},
		{StageQualityCheck, 30, false},
		{StagePackaging, 30, false},
	},
}

// StageTemplateFor returns the ordered default pipeline for a job type,
// falling back to the default template for unknown types.
func StageTemplateFor(t JobType) []StageTemplate {
	if tpl, ok := stageTemplates[t]; ok {
		return tpl
	}
	return stageTemplates[JobTypeDefault]
}
