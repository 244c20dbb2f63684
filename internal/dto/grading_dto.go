package dto

// GradingRequest is the intake payload for an asynchronous grading job.
// Attachment entries are server-local paths or upload handles resolved by the
// aggregator; unreadable entries are skipped, not fatal.
type GradingRequest struct {
	CallbackURL string `json:"callback_url" validate:"required,url"`
	RequestID   string `json:"request_id"`

	CourseID              string   `json:"course_id"`
	AssignmentContent     string   `json:"assignment_content" validate:"required"`
	AssignmentAttachments []string `json:"assignment_attachments"`

	StudentSubmissionText  string   `json:"student_submission_text"`
	StudentSubmissionFiles []string `json:"student_submission_files"`

	ReferenceAnswerText string `json:"reference_answer_text"`
	ReferenceAnswerFile string `json:"reference_answer_file"`

	GradingCriteria    string  `json:"grading_criteria"`
	TeacherInstruction string  `json:"teacher_instruction"`
	MaxScore           float64 `json:"max_score" validate:"gt=0"`
}

// GradingQueuedResponse acknowledges that a grading job was accepted.
type GradingQueuedResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// GradingResult is the terminal outcome of one grading job. Exactly one of
// (Score & Feedback) or Error is populated.
type GradingResult struct {
	Score    *float64 `json:"score"`
	Feedback *string  `json:"feedback"`
	Error    *string  `json:"error"`
	AIModel  string   `json:"ai_model"`
}

// WebhookPayload is the wire format POSTed to the caller's callback URL.
// Field names and shapes are a bit-exact contract with callers.
type WebhookPayload struct {
	RequestID   string         `json:"request_id"`
	Status      string         `json:"status"`
	Timestamp   string         `json:"timestamp"`
	Data        *GradingResult `json:"data"`
	SystemError *string        `json:"system_error"`
}

// Webhook delivery statuses.
const (
	WebhookStatusSuccess = "success"
	WebhookStatusError   = "error"
)
