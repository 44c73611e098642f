package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/silkworks-ai/docrag/internal/domain"
)

type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) ScrapeSource(ctx context.Context, sourceType domain.SourceType) ([]domain.Document, error) {
	args := m.Called(ctx, sourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) InsertChunks(ctx context.Context, records []domain.StoredChunk, batchSize int) error {
	args := m.Called(ctx, records, batchSize)
	return args.Error(0)
}

func (m *MockChunkStore) ClearBySourceType(ctx context.Context, sourceType domain.SourceType) (int64, error) {
	args := m.Called(ctx, sourceType)
	return args.Get(0).(int64), args.Error(1)
}

type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) StoreDocument(ctx context.Context, runID string, doc domain.Document) (string, error) {
	args := m.Called(ctx, runID, doc)
	return args.String(0), args.Error(1)
}

// stubEmbeddingClient returns a fixed unit vector for every input.
type stubEmbeddingClient struct{}

func (stubEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func identityEmbedder(batchSize int) *EmbeddingService {
	return NewEmbeddingService(stubEmbeddingClient{}, batchSize)
}

func ingestTestDocs() []domain.Document {
	content := strings.Repeat("Middleware runs before a request is completed. ", 12)
	return []domain.Document{{
		Content:    content,
		URL:        "https://nextjs.org/docs/app/middleware",
		SourceType: domain.SourceFrameworkDocs,
		Section:    "routing",
		Title:      "Middleware",
		Version:    "15",
	}}
}

func newIngestChunker(t *testing.T) *Chunker {
	t.Helper()
	chunker, err := NewChunker(DefaultChunkConfig())
	require.NoError(t, err)
	return chunker
}

func TestIngestSource_Success(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)

	docs := ingestTestDocs()
	source.On("ScrapeSource", mock.Anything, domain.SourceFrameworkDocs).Return(docs, nil)
	store.On("InsertChunks", mock.Anything, mock.Anything, 100).Return(nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, nil, 100)
	report, err := svc.IngestSource(context.Background(), domain.SourceFrameworkDocs, false)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceFrameworkDocs, report.SourceType)
	assert.Equal(t, 1, report.Documents)
	assert.Positive(t, report.Chunks)
	assert.NotEmpty(t, report.RunID)
	assert.Zero(t, report.ClearedChunks)

	store.AssertExpectations(t)
	inserted := store.Calls[0].Arguments.Get(1).([]domain.StoredChunk)
	require.Len(t, inserted, report.Chunks)
	assert.Equal(t, []float32{1, 0, 0}, inserted[0].Embedding)
	assert.Equal(t, domain.SourceFrameworkDocs, inserted[0].Metadata.SourceType)
}

func TestIngestSource_ClearExisting(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)

	source.On("ScrapeSource", mock.Anything, domain.SourceSecurityDocs).Return([]domain.Document{{
		Content:    strings.Repeat("Store passwords with a memory-hard hash. ", 12),
		URL:        "https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html",
		SourceType: domain.SourceSecurityDocs,
		Section:    "authentication",
		Title:      "Password Storage Cheat Sheet",
	}}, nil)
	store.On("ClearBySourceType", mock.Anything, domain.SourceSecurityDocs).Return(int64(42), nil)
	store.On("InsertChunks", mock.Anything, mock.Anything, 100).Return(nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, nil, 100)
	report, err := svc.IngestSource(context.Background(), domain.SourceSecurityDocs, true)

	require.NoError(t, err)
	assert.Equal(t, int64(42), report.ClearedChunks)
	store.AssertExpectations(t)
}

func TestIngestSource_ArchivesBeforeChunking(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)
	archive := new(MockDocumentArchive)

	docs := ingestTestDocs()
	source.On("ScrapeSource", mock.Anything, domain.SourceFrameworkDocs).Return(docs, nil)
	archive.On("StoreDocument", mock.Anything, mock.Anything, docs[0]).Return("framework-docs/run/middleware.md", nil)
	store.On("InsertChunks", mock.Anything, mock.Anything, 100).Return(nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, archive, 100)
	_, err := svc.IngestSource(context.Background(), domain.SourceFrameworkDocs, false)

	require.NoError(t, err)
	archive.AssertExpectations(t)
}

func TestIngestSource_ArchiveFailureIsNotFatal(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)
	archive := new(MockDocumentArchive)

	docs := ingestTestDocs()
	source.On("ScrapeSource", mock.Anything, domain.SourceFrameworkDocs).Return(docs, nil)
	archive.On("StoreDocument", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))
	store.On("InsertChunks", mock.Anything, mock.Anything, 100).Return(nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, archive, 100)
	_, err := svc.IngestSource(context.Background(), domain.SourceFrameworkDocs, false)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestIngestSource_UnknownSourceType(t *testing.T) {
	svc := NewIngestService(new(MockDocumentSource), newIngestChunker(t), identityEmbedder(32), new(MockChunkStore), nil, 100)

	_, err := svc.IngestSource(context.Background(), domain.SourceType("forum-posts"), false)

	assert.ErrorIs(t, err, domain.ErrInvalidSourceType)
}

func TestIngestSource_NoDocumentsIsNotAnError(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)
	source.On("ScrapeSource", mock.Anything, domain.SourceSEODocs).Return([]domain.Document{}, nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, nil, 100)
	report, err := svc.IngestSource(context.Background(), domain.SourceSEODocs, false)

	require.NoError(t, err)
	assert.Zero(t, report.Chunks)
	store.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestSource_ScrapeFailure(t *testing.T) {
	source := new(MockDocumentSource)
	source.On("ScrapeSource", mock.Anything, domain.SourceFrameworkDocs).Return(nil, errors.New("network down"))

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), new(MockChunkStore), nil, 100)
	_, err := svc.IngestSource(context.Background(), domain.SourceFrameworkDocs, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestIngestAll_StopsAtFirstFailure(t *testing.T) {
	source := new(MockDocumentSource)
	store := new(MockChunkStore)

	source.On("ScrapeSource", mock.Anything, domain.SourceFrameworkDocs).Return(ingestTestDocs(), nil)
	source.On("ScrapeSource", mock.Anything, domain.SourceSecurityDocs).Return(nil, errors.New("network down"))
	store.On("InsertChunks", mock.Anything, mock.Anything, 100).Return(nil)

	svc := NewIngestService(source, newIngestChunker(t), identityEmbedder(32), store, nil, 100)
	reports, err := svc.IngestAll(context.Background(), false)

	require.Error(t, err)
	assert.Len(t, reports, 1)
	source.AssertNotCalled(t, "ScrapeSource", mock.Anything, domain.SourceSEODocs)
}
