package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// PromptInput carries the sanitized, aggregated fields of one grading job.
type PromptInput struct {
	CourseID           string
	Question           string
	Submission         string
	Reference          string
	Rubric             string
	TeacherInstruction string
	MaxScore           float64
}

// PromptService assembles the structured prompts sent to the scoring model.
type PromptService interface {
	BuildGradingPrompt(ctx context.Context, input PromptInput) string
	BuildRubricPrompt(rubricType string, rawData map[string]interface{}, noteContext string) string
}

type promptService struct {
	instructions InstructionService
	retriever    Retriever
	ragLimit     int
	logger       zerolog.Logger
}

// NewPromptService builds the prompt assembler. retriever may be nil when
// retrieval is disabled.
func NewPromptService(instructions InstructionService, retriever Retriever, ragLimit int, logger zerolog.Logger) PromptService {
	if ragLimit <= 0 {
		ragLimit = 3
	}

	return &promptService{
		instructions: instructions,
		retriever:    retriever,
		ragLimit:     ragLimit,
		logger:       logger.With().Str("component", "prompt_service").Logger(),
	}
}

// questionNumbering matches leading "1.", "Câu 2:", "Question 3)" style
// markers used to split multi-part assignments for retrieval.
var questionNumbering = regexp.MustCompile(`(?:^|\n)\s*(?:Câu|Bài|Phần|Question|Part)?\s*\d+[:.)]`)

func splitQuestions(raw string) []string {
	parts := questionNumbering.Split(raw, -1)
	questions := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	if len(questions) == 0 {
		return []string{raw}
	}
	return questions
}

func (s *promptService) BuildGradingPrompt(ctx context.Context, input PromptInput) string {
	teacherBlock := input.TeacherInstruction
	if teacherBlock == "" {
		teacherBlock = "No additional requirements."
	}

	var criteria string
	switch {
	case input.Rubric != "":
		criteria = "FOLLOW THIS RUBRIC:\n" + input.Rubric
	case input.Reference != "":
		criteria = "COMPARE AGAINST THIS REFERENCE ANSWER:\n" + input.Reference
	default:
		criteria = "Evaluate based on your expert knowledge of the subject."
	}

	return strings.TrimSpace(fmt.Sprintf(`<system_role>
%s
</system_role>

<teacher_instruction>
%s
</teacher_instruction>

<problem_statement>
%s
</problem_statement>

<grading_criteria>
%s
</grading_criteria>

<student_submission>
%s
</student_submission>

<output_requirements>
1. Task: grade and review the work inside <student_submission> against <problem_statement> and <grading_criteria>.
2. Scale: 0 to %g.
3. Output format: return ONLY one valid JSON object.
4. Required JSON structure:
{
    "score": <number>,
    "feedback": "<detailed feedback>"
}
</output_requirements>

<textbook_references>
Use the following reference material to support grading (when relevant):
%s
</textbook_references>`,
		s.instructions.Get(),
		teacherBlock,
		input.Question,
		criteria,
		input.Submission,
		input.MaxScore,
		s.textbookReferences(ctx, input),
	))
}

func (s *promptService) textbookReferences(ctx context.Context, input PromptInput) string {
	if s.retriever == nil || input.CourseID == "" {
		return "[]"
	}

	var sb strings.Builder
	questions := splitQuestions(input.Question)
	s.logger.Debug().Int("questions", len(questions)).Msg("looking up reference material")

	for _, question := range questions {
		passages, err := s.retriever.Search(ctx, question, input.CourseID, s.ragLimit)
		if err != nil {
			s.logger.Warn().Err(err).Msg("reference lookup failed")
			continue
		}
		if len(passages) == 0 {
			continue
		}

		encoded, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			continue
		}
		sb.Write(encoded)
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "[]"
	}

	return strings.TrimSpace(sb.String())
}

// BuildRubricPrompt produces the flattening prompt that converts structured
// rubric data into natural-language grading criteria.
func (s *promptService) BuildRubricPrompt(rubricType string, rawData map[string]interface{}, noteContext string) string {
	var strategy string
	switch rubricType {
	case "rubric":
		strategy = "The data is a RUBRIC (matrix). Describe the gradation between score levels " +
			"(excellent vs. good vs. weak) using comparative language that makes the differences clear."
	case "marking_guide":
		strategy = "The data is a MARKING GUIDE. Extract a checklist of the required key points " +
			"and state how marks are deducted when a point is missing."
	default:
		strategy = "Summarize the grading criteria clearly and concisely."
	}

	if noteContext == "" {
		noteContext = "N/A"
	}

	encoded, err := json.Marshal(rawData)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", rawData))
	}

	return strings.TrimSpace(fmt.Sprintf(`<role>
You are a pedagogy expert. Convert raw grading data (JSON) into a natural-language marking guide.
</role>

<context>
Tool type: %s
Context: %s
</context>

<task_instruction>
%s
Tone: natural, coherent, professional, as a head of department briefing graders.
Format: plain text.
</task_instruction>

<raw_data>
%s
</raw_data>

<output_directive>
Write the detailed guide based on <raw_data> above. Begin now:
</output_directive>`,
		strings.ToUpper(rubricType),
		noteContext,
		strategy,
		encoded,
	))
}
