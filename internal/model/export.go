package model

import "time"

// QuizExport is the top-level JSON structure for result export.
type QuizExport struct {
	Generated time.Time      `json:"generated"`
	Count     int            `json:"count"`
	Results   []ResultRecord `json:"results"`
}

// ResultRecord is one completed session's outcome as stored for export.
type ResultRecord struct {
	SessionID   string    `json:"session_id"`
	Primary     Category  `json:"primary"`
	Visual      int       `json:"visual"`
	Auditory    int       `json:"auditory"`
	Kinesthetic int       `json:"kinesthetic"`
	Total       int       `json:"total"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Result converts the stored record back into a Result value.
func (r ResultRecord) Result() Result {
	return Result{
		Primary: r.Primary,
		Scores: map[Category]int{
			CategoryVisual:      r.Visual,
			CategoryAuditory:    r.Auditory,
			CategoryKinesthetic: r.Kinesthetic,
		},
	}
}
