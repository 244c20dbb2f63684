package service

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRetriever(t *testing.T, chunkSize, overlap int) Retriever {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRetrievalService(client, chunkSize, overlap, zerolog.Nop())
}

func TestIngestAndSearchRanksByTermOverlap(t *testing.T) {
	svc := newTestRetriever(t, 200, 0)
	ctx := context.Background()

	chunks, err := svc.Ingest(ctx, "physics-101", "textbook.pdf",
		"Velocity is the rate of change of position over time.")
	require.NoError(t, err)
	require.Equal(t, 1, chunks)

	_, err = svc.Ingest(ctx, "physics-101", "glossary.txt",
		"Photosynthesis converts light energy into chemical energy.")
	require.NoError(t, err)

	passages, err := svc.Search(ctx, "rate of change of velocity", "physics-101", 5)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	require.Equal(t, "textbook.pdf", passages[0].Source)
	for _, p := range passages {
		require.NotEqual(t, "glossary.txt", p.Source, "non-matching document must not surface")
	}
}

func TestSearchIsDiacriticInsensitive(t *testing.T) {
	svc := newTestRetriever(t, 200, 0)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "van-hoc", "giao-trinh.pdf",
		"Tác phẩm văn học phản ánh đời sống xã hội.")
	require.NoError(t, err)

	passages, err := svc.Search(ctx, "tac pham van hoc", "van-hoc", 5)
	require.NoError(t, err)
	require.Len(t, passages, 1)
}

func TestSearchScopedToCourse(t *testing.T) {
	svc := newTestRetriever(t, 200, 0)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "course-a", "a.txt", "Entropy always increases in an isolated system.")
	require.NoError(t, err)

	passages, err := svc.Search(ctx, "entropy increases", "course-b", 5)
	require.NoError(t, err)
	require.Empty(t, passages)
}

func TestSearchHonorsLimit(t *testing.T) {
	svc := newTestRetriever(t, 60, 0)
	ctx := context.Background()

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("entropy and disorder grow together in every isolated thermodynamic system studied. ")
	}
	chunks, err := svc.Ingest(ctx, "course-a", "a.txt", sb.String())
	require.NoError(t, err)
	require.Greater(t, chunks, 2)

	passages, err := svc.Search(ctx, "entropy disorder", "course-a", 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	svc := newTestRetriever(t, 200, 0)

	_, err := svc.Ingest(context.Background(), "course-a", "empty.txt", "   ")
	require.Error(t, err)
}

func TestChunkTextOverlap(t *testing.T) {
	chunks := chunkText("one two three four five six seven eight nine ten", 20, 8)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share trailing words from the previous chunk.
	firstWords := strings.Fields(chunks[0])
	require.Contains(t, chunks[1], firstWords[len(firstWords)-1])
}

func TestQueryTermsFoldsAndDedupes(t *testing.T) {
	terms := queryTerms("Văn văn VAN a the THE")
	require.Equal(t, []string{"van", "the"}, terms)
}
