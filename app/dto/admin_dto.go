package dto

// ResetRuntimeResponse reports what the runtime reset removed
type ResetRuntimeResponse struct {
	DeletedFeedback   int64 `json:"deleted_feedback"`
	DeletedDeliveries int64 `json:"deleted_deliveries"`
	DeletedGreetings  int64 `json:"deleted_greetings"`
	DeletedEvents     int64 `json:"deleted_events"`
	DeletedAgentRuns  int64 `json:"deleted_agent_runs"`
	DeletedFiles      int64 `json:"deleted_files"`
}
