package producer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fininsight/fininsight/internal/storage"
)

type fakeObjectStore struct {
	puts       map[string][]byte
	ensured    []string
	lastPutKey string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{puts: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, container, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.puts[container+"/"+key] = data
	f.lastPutKey = key
	return storage.ObjectInfo{Container: container, Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) Get(_ context.Context, container, key string) (io.ReadCloser, error) {
	data, ok := f.puts[container+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeObjectStore) Stat(context.Context, string, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, storage.ErrObjectNotFound
}

func (f *fakeObjectStore) Delete(context.Context, string, string) error { return nil }

func (f *fakeObjectStore) EnsureContainer(_ context.Context, container string) error {
	f.ensured = append(f.ensured, container)
	return nil
}

func TestProduceOnceUploadsAndTriggersIngest(t *testing.T) {
	var gotRequest ingestAPIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest-excel-blob/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","rows":4}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL
	cfg.BatchSize = 4
	cfg.Seed = 1

	blobs := newFakeObjectStore()
	service, err := NewService(cfg, nil, server.Client(), blobs)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := service.ProduceOnce(context.Background()); err != nil {
		t.Fatalf("ProduceOnce() error = %v", err)
	}

	if len(blobs.puts) != 1 {
		t.Fatalf("uploaded blobs = %d", len(blobs.puts))
	}
	if gotRequest.ContainerName != cfg.Container {
		t.Fatalf("container_name = %q", gotRequest.ContainerName)
	}
	if gotRequest.BlobName != blobs.lastPutKey {
		t.Fatalf("blob_name = %q, uploaded key = %q", gotRequest.BlobName, blobs.lastPutKey)
	}
	if !strings.HasPrefix(gotRequest.BlobName, cfg.TableName+"/") {
		t.Fatalf("blob key = %q", gotRequest.BlobName)
	}
}

func TestProduceOnceSurfacesAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"duplicate column"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL
	cfg.BatchSize = 1

	service, err := NewService(cfg, nil, server.Client(), newFakeObjectStore())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	err = service.ProduceOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("error = %v", err)
	}
}

func TestNewServiceValidatesContainer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Container = "bad/name"
	if _, err := NewService(cfg, nil, nil, newFakeObjectStore()); err == nil {
		t.Fatal("expected container validation error")
	}
}
