package service

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// ErrTokenLimitExceeded indicates a prompt is over the configured budget.
// Retrying the same oversized prompt cannot succeed, so this is terminal.
var ErrTokenLimitExceeded = errors.New("prompt exceeds the configured token budget")

// TokenService estimates prompt size and enforces the input token budget.
type TokenService interface {
	Count(text string) int
	CheckLimit(text string) error
}

type tokenService struct {
	encode func(string) []int
	limit  int
	logger zerolog.Logger
}

// NewTokenService builds a counter backed by the cl100k_base encoding. When
// the encoding cannot be loaded (offline environments) counting falls back
// to a conservative character-based estimate.
func NewTokenService(limit int, logger zerolog.Logger) TokenService {
	var encode func(string) []int
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		encode = func(text string) []int {
			return enc.Encode(text, nil, nil)
		}
	} else {
		logger.Warn().Err(err).Msg("tiktoken encoding unavailable, using character estimate")
	}

	return NewTokenServiceWithEncoder(encode, limit, logger)
}

// NewTokenServiceWithEncoder injects the encoding function, primarily for
// deterministic tests. A nil encoder selects the character estimate.
func NewTokenServiceWithEncoder(encode func(string) []int, limit int, logger zerolog.Logger) TokenService {
	return &tokenService{
		encode: encode,
		limit:  limit,
		logger: logger.With().Str("component", "token_service").Logger(),
	}
}

func (s *tokenService) Count(text string) int {
	if text == "" {
		return 0
	}

	if s.encode == nil {
		// Roughly one token per three characters, erring on the high side
		// for non-Latin scripts.
		return len(text) / 3
	}

	return len(s.encode(text))
}

func (s *tokenService) CheckLimit(text string) error {
	if s.limit <= 0 {
		return nil
	}

	count := s.Count(text)
	if count > s.limit {
		return fmt.Errorf("%w: %d/%d tokens", ErrTokenLimitExceeded, count, s.limit)
	}

	return nil
}
