package server

// SimilarRequest is the body of POST /api/words/similar_db.
type SimilarRequest struct {
	Word string `json:"word"`
	TopK *int   `json:"top_k,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Strategy string `json:"strategy"`
}
