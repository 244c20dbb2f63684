package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/textnorm"
)

// Retriever looks up course reference material used to decorate grading
// prompts with textbook passages.
type Retriever interface {
	Ingest(ctx context.Context, courseID, source, text string) (int, error)
	Search(ctx context.Context, query, courseID string, limit int) ([]dto.RagPassage, error)
}

type retrievalService struct {
	client    *redis.Client
	chunkSize int
	overlap   int
	logger    zerolog.Logger
}

// NewRetrievalService builds a redis-backed retriever. Chunk size and
// overlap are in runes; zero values select defaults.
func NewRetrievalService(client *redis.Client, chunkSize, overlap int, logger zerolog.Logger) Retriever {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 100
	}

	return &retrievalService{
		client:    client,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger.With().Str("component", "retrieval_service").Logger(),
	}
}

type storedChunk struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

func courseKey(courseID string) string {
	return "rag:course:" + courseID
}

func (s *retrievalService) Ingest(ctx context.Context, courseID, source, text string) (int, error) {
	chunks := chunkText(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q produced no indexable chunks", source)
	}

	values := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		encoded, err := json.Marshal(storedChunk{Source: source, Content: chunk})
		if err != nil {
			return 0, fmt.Errorf("encode chunk: %w", err)
		}
		values = append(values, encoded)
	}

	if err := s.client.RPush(ctx, courseKey(courseID), values...).Err(); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Info().Str("course_id", courseID).Str("source", source).Int("chunks", len(chunks)).Msg("document ingested")

	return len(chunks), nil
}

func (s *retrievalService) Search(ctx context.Context, query, courseID string, limit int) ([]dto.RagPassage, error) {
	if limit <= 0 {
		limit = 3
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, courseKey(courseID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	passages := make([]dto.RagPassage, 0, len(raw))
	for _, entry := range raw {
		var chunk storedChunk
		if err := json.Unmarshal([]byte(entry), &chunk); err != nil {
			continue
		}

		score := overlapScore(terms, chunk.Content)
		if score > 0 {
			passages = append(passages, dto.RagPassage{
				Source:  chunk.Source,
				Content: chunk.Content,
				Score:   score,
			})
		}
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	if len(passages) > limit {
		passages = passages[:limit]
	}

	return passages, nil
}

func queryTerms(query string) []string {
	seen := map[string]struct{}{}
	terms := make([]string, 0)
	for _, term := range strings.Fields(textnorm.Fold(query)) {
		// Single-rune terms are mostly noise in both English and Vietnamese.
		if len([]rune(term)) < 2 {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// overlapScore is the fraction of query terms present in the passage.
func overlapScore(terms []string, content string) float64 {
	folded := " " + strings.Join(strings.Fields(textnorm.Fold(content)), " ") + " "
	matched := 0
	for _, term := range terms {
		if strings.Contains(folded, " "+term+" ") {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// chunkText splits text into overlapping word-aligned chunks of roughly
// size runes.
func chunkText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0)
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing words up to the overlap budget.
		kept := make([]string, 0)
		keptLen := 0
		for i := len(current) - 1; i >= 0 && keptLen < overlap; i-- {
			kept = append([]string{current[i]}, kept...)
			keptLen += len([]rune(current[i])) + 1
		}
		current = kept
		currentLen = keptLen
	}

	for _, word := range words {
		wordLen := len([]rune(word)) + 1
		if currentLen+wordLen > size && currentLen > 0 {
			flush()
		}
		current = append(current, word)
		currentLen += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return dedupeTail(chunks)
}

// dedupeTail drops a final chunk that is wholly contained in the previous
// one, which happens when the last flush only re-emits overlap words.
func dedupeTail(chunks []string) []string {
	if n := len(chunks); n >= 2 && strings.Contains(chunks[n-2], chunks[n-1]) {
		return chunks[:n-1]
	}
	return chunks
}
