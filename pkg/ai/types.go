package ai

import "context"

// ScoreOutput is the structured response parsed from the scoring model.
type ScoreOutput struct {
	Score    float64                `json:"score"`
	Feedback string                 `json:"feedback"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Scorer describes an AI model capable of grading a prepared prompt. A
// scorer may be slow (minutes) and retries its own transient transport
// failures before reporting an error.
type Scorer interface {
	Score(ctx context.Context, prompt string) (ScoreOutput, error)
	Model() string
}

// Completer produces a free-form text completion for a prompt. It is used
// for auxiliary generation such as rubric flattening.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
