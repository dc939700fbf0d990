package model

// WebSocket message types
const (
	WSMessageTypeStage        = "stage"
	WSMessageTypeJobCompleted = "job_completed"
	WSMessageTypePing         = "ping"
	WSMessageTypePong         = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStageMessage announces a stage transition to job subscribers
type WSStageMessage struct {
	Type                 string        `json:"type"`
	JobID                string        `json:"jobId"`
	Stage                StageResponse `json:"stage"`
	CompletionPercentage int           `json:"completionPercentage"`
}

// WSJobCompletedMessage announces that all stages of a job completed
type WSJobCompletedMessage struct {
	Type string      `json:"type"`
	Job  JobResponse `json:"job"`
}
