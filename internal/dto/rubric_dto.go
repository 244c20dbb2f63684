package dto

// RubricFlattenRequest converts structured rubric data into natural-language
// grading criteria. RawData must satisfy the rubric JSON schema.
type RubricFlattenRequest struct {
	RubricType string                 `json:"rubric_type" validate:"required,oneof=rubric marking_guide generic"`
	RawData    map[string]interface{} `json:"raw_data" validate:"required"`
	Context    string                 `json:"context"`
}

// RubricFlattenResponse carries the flattened criteria text.
type RubricFlattenResponse struct {
	RubricType string `json:"rubric_type"`
	Criteria   string `json:"criteria"`
}
