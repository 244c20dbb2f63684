package dto

// RagIngestRequest registers a course document with the retrieval store.
type RagIngestRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	FilePath string `json:"file_path" validate:"required"`
}

// RagIngestResponse reports how many chunks were indexed.
type RagIngestResponse struct {
	CourseID string `json:"course_id"`
	Source   string `json:"source"`
	Chunks   int    `json:"chunks"`
}

// RagSearchRequest queries course reference material.
type RagSearchRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Query    string `json:"query" validate:"required"`
	Limit    int    `json:"limit" validate:"omitempty,gte=1,lte=20"`
}

// RagPassage is one ranked retrieval hit.
type RagPassage struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
