package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/pkg/ai"
)

// ErrInvalidRubricData indicates the raw rubric payload failed schema
// validation.
var ErrInvalidRubricData = errors.New("rubric data does not match the expected shape")

// rubricSchemaJSON constrains the raw rubric payload: a non-empty object
// whose criterion entries are strings, objects, or arrays of either.
const rubricSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {
		"anyOf": [
			{"type": "string"},
			{"type": "number"},
			{"type": "object"},
			{
				"type": "array",
				"items": {"anyOf": [{"type": "string"}, {"type": "number"}, {"type": "object"}]}
			}
		]
	}
}`

// RubricService flattens structured rubric data into natural-language
// grading criteria using the scoring model.
type RubricService interface {
	Flatten(ctx context.Context, req dto.RubricFlattenRequest) (dto.RubricFlattenResponse, error)
}

type rubricService struct {
	validator *validator.Validate
	schema    *jsonschema.Schema
	prompts   PromptService
	completer ai.Completer
	logger    zerolog.Logger
}

// NewRubricService constructs the rubric flattening service.
func NewRubricService(validate *validator.Validate, prompts PromptService, completer ai.Completer, logger zerolog.Logger) (RubricService, error) {
	schema, err := jsonschema.CompileString("rubric.schema.json", rubricSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile rubric schema: %w", err)
	}

	return &rubricService{
		validator: validate,
		schema:    schema,
		prompts:   prompts,
		completer: completer,
		logger:    logger.With().Str("component", "rubric_service").Logger(),
	}, nil
}

func (s *rubricService) Flatten(ctx context.Context, req dto.RubricFlattenRequest) (dto.RubricFlattenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.RubricFlattenResponse{}, err
	}

	if err := s.schema.Validate(normalizeForSchema(req.RawData)); err != nil {
		return dto.RubricFlattenResponse{}, fmt.Errorf("%w: %v", ErrInvalidRubricData, err)
	}

	prompt := s.prompts.BuildRubricPrompt(req.RubricType, req.RawData, req.Context)

	criteria, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("rubric flattening failed")
		return dto.RubricFlattenResponse{}, fmt.Errorf("flatten rubric: %w", err)
	}

	return dto.RubricFlattenResponse{
		RubricType: req.RubricType,
		Criteria:   strings.TrimSpace(criteria),
	}, nil
}

// normalizeForSchema converts the decoded payload into the plain-interface
// shape the schema validator expects.
func normalizeForSchema(data map[string]interface{}) interface{} {
	return map[string]interface{}(data)
}
