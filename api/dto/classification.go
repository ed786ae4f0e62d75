package dto

type ClassificationResponse struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	ClassID     int     `json:"classId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details *string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
