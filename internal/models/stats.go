package models

// AverageScores holds the per-criterion arithmetic means. Zero when the
// evaluation has no responses, never NaN.
type AverageScores struct {
	Preparation float64 `db:"preparation" json:"preparation"`
	Explanation float64 `db:"explanation" json:"explanation"`
	Engagement  float64 `db:"engagement" json:"engagement"`
	Atmosphere  float64 `db:"atmosphere" json:"atmosphere"`
	Individual  float64 `db:"individual" json:"individual"`
}

// EvaluationStats aggregates submissions for one evaluation.
type EvaluationStats struct {
	TotalResponses int           `json:"total_responses"`
	AverageScores  AverageScores `json:"average_scores"`
	CompletionRate float64       `json:"completion_rate"`
}

// CodeCounts reports issued vs consumed access codes for one evaluation.
type CodeCounts struct {
	Total int `db:"total"`
	Used  int `db:"used"`
}
