package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/clients/pinecone"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeAI scripts GenerateJSON responses and records prompts.
type fakeAI struct {
	mu        sync.Mutex
	jsonSteps []map[string]any
	jsonCalls int
	texts     []string
	prompts   []string
	embedDim  int
	err       error
}

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	dim := f.embedDim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = make([]float32, dim)
		out[i][0] = float32(len(inputs[i]))
	}
	return out, nil
}

func (f *fakeAI) GenerateJSON(_ context.Context, _ string, user string, _ string, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.prompts = append(f.prompts, user)
	if f.jsonCalls >= len(f.jsonSteps) {
		return nil, fmt.Errorf("fakeAI: no scripted step %d", f.jsonCalls)
	}
	step := f.jsonSteps[f.jsonCalls]
	f.jsonCalls++
	return step, nil
}

func (f *fakeAI) GenerateText(_ context.Context, _ string, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, user)
	if len(f.texts) == 0 {
		return "generated text", nil
	}
	out := f.texts[0]
	f.texts = f.texts[1:]
	return out, nil
}

func (f *fakeAI) GenerateTextWithImages(ctx context.Context, system string, user string, _ []openai.ImageInput) (string, error) {
	return f.GenerateText(ctx, system, user)
}

var _ openai.Client = (*fakeAI)(nil)

// fakeVectorStore records upserts by namespace.
type fakeVectorStore struct {
	mu      sync.Mutex
	upserts map[string][]pinecone.Vector
	err     error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{upserts: make(map[string][]pinecone.Vector)}
}

func (f *fakeVectorStore) Upsert(_ context.Context, namespace string, vectors []pinecone.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts[namespace] = append(f.upserts[namespace], vectors...)
	return nil
}

func (f *fakeVectorStore) QueryIDs(context.Context, string, []float32, int, map[string]any) ([]string, error) {
	return nil, nil
}

var _ pinecone.VectorStore = (*fakeVectorStore)(nil)

// fakeBucket is an in-memory object store.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	b, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeBucket) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBucket) WriteJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.UploadFile(ctx, key, bytes.NewReader(b))
}

func (f *fakeBucket) ReadJSON(ctx context.Context, key string, out any) error {
	rc, err := f.DownloadFile(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for k := range f.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeBucket) DeletePrefix(ctx context.Context, prefix string) error {
	keys, _ := f.ListKeys(ctx, prefix)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

func (f *fakeBucket) ObjectURI(key string) string    { return "gs://test-bucket/" + key }
func (f *fakeBucket) GetPublicURL(key string) string { return "https://cdn.test/" + key }
