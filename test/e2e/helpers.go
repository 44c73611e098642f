//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silkworks-ai/docrag/internal/api/handlers"
	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/repository"
	"github.com/silkworks-ai/docrag/internal/server"
	"github.com/silkworks-ai/docrag/internal/service"
	"github.com/silkworks-ai/docrag/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ChunkRepo    *repository.ChunkRepository
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a pgvector container
// and a running HTTP server backed by the stub embedding client.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	chunkRepo := repository.NewChunkRepository(pool)
	serverURL, serverCloser := startServer(t, chunkRepo, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ChunkRepo:    chunkRepo,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// SeedCorpus inserts a small fixed corpus whose embeddings line up with the
// stub embedding client, so queries hit predictable chunks.
func (e *E2ETestEnv) SeedCorpus() {
	records := []domain.StoredChunk{
		seedChunk("File-based routing maps pages to URL paths.", domain.SourceFrameworkDocs, "routing", "Routing Basics", 0),
		seedChunk("Server components render on the server by default.", domain.SourceFrameworkDocs, "components", "Server Components", 0),
		seedChunk("Hash passwords with a slow KDF before storage.", domain.SourceSecurityDocs, "authentication", "Password Storage", 1),
		seedChunk("Sitemaps help crawlers discover site structure.", domain.SourceSEODocs, "sitemaps", "Sitemap Guide", 2),
	}
	if err := e.ChunkRepo.InsertChunks(e.Ctx, records, 0); err != nil {
		e.T.Fatalf("failed to seed corpus: %v", err)
	}
}

func seedChunk(content string, sourceType domain.SourceType, section, title string, axis int) domain.StoredChunk {
	return domain.StoredChunk{
		Chunk: domain.Chunk{
			Content: content,
			Metadata: domain.ChunkMetadata{
				SourceURL:   "https://docs.example.com/" + section,
				SourceType:  sourceType,
				Section:     section,
				Title:       title,
				Version:     "1.0",
				ChunkIndex:  0,
				TotalChunks: 1,
			},
			TokenCount: 16,
		},
		Embedding: axisEmbedding(axis),
	}
}

// stubEmbeddingClient maps text onto fixed axes by keyword so vector search
// is deterministic without calling a real embedding provider.
type stubEmbeddingClient struct{}

func (stubEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = axisEmbedding(embeddingAxis(text))
	}
	return embeddings, nil
}

func embeddingAxis(text string) int {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "framework implementation patterns"):
		return 0
	case strings.Contains(lowered, "security best practices"):
		return 1
	case strings.Contains(lowered, "seo and performance optimization"):
		return 2
	case strings.Contains(lowered, "routing") || strings.Contains(lowered, "component"):
		return 0
	case strings.Contains(lowered, "auth") || strings.Contains(lowered, "password"):
		return 1
	case strings.Contains(lowered, "seo") || strings.Contains(lowered, "sitemap"):
		return 2
	}
	return 3
}

func axisEmbedding(axis int) []float32 {
	v := make([]float32, 768)
	v[axis] = 1
	return v
}

// Get performs a GET request and returns the status code and raw body
func (e *E2ETestEnv) Get(path string) (int, []byte, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request and returns the status code and raw body
func (e *E2ETestEnv) Post(path string, body interface{}) (int, []byte, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (int, []byte, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// BuildBinaries builds the docrag client binary for CLI tests
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docrag-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docrag"), "./cmd/docrag")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docrag: %v\n%s", err, out)
	}
}

// RunDocrag runs the docrag CLI against the test server
func (e *E2ETestEnv) RunDocrag(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docrag"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DOCRAG_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// startServer starts the HTTP server with the retrieval stack wired up
func startServer(t *testing.T, chunkRepo *repository.ChunkRepository, port int) (string, func()) {
	embedSvc := service.NewEmbeddingService(stubEmbeddingClient{}, 16)
	retriever := service.NewRetriever(embedSvc, chunkRepo, service.DefaultRetrieverConfig())
	retrieveHandler := handlers.NewRetrieveHandler(retriever)

	router := server.NewRouter(server.RouterConfig{
		RetrieveHandler: retrieveHandler,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
