package httpblob

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// memBlobServer is a minimal in-memory stand-in for a blob-store HTTP
// endpoint, enough to exercise Remote's HEAD/PUT/GET contract.
type memBlobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobServer() *memBlobServer {
	return &memBlobServer{blobs: map[string][]byte{}}
}

func (s *memBlobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Path[len("/blobs/"):]
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		if _, ok := s.blobs[hash]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if _, exists := s.blobs[hash]; exists {
			w.WriteHeader(http.StatusConflict)
			return
		}
		s.blobs[hash] = body
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		body, ok := s.blobs[hash]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestHTTPBlobRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newMemBlobServer())
	defer srv.Close()

	remote, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	const hash = "sha1:f572d396fae9206628714fb2ce00f72e94f2258"

	present, err := remote.HasObject(ctx, hash)
	if err != nil {
		t.Fatalf("HasObject: %v", err)
	}
	if present {
		t.Fatalf("expected absent before write")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := remote.WriteObject(ctx, hash, src); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}

	present, err = remote.HasObject(ctx, hash)
	if err != nil {
		t.Fatalf("HasObject after write: %v", err)
	}
	if !present {
		t.Fatalf("expected present after write")
	}

	// Writing again must be tolerated (ALREADY_EXISTS semantics).
	if err := remote.WriteObject(ctx, hash, src); err != nil {
		t.Fatalf("second WriteObject: %v", err)
	}

	dest := filepath.Join(dir, "dest")
	if err := remote.ReadObject(ctx, hash, dest, dir); err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "hello\n" {
		t.Fatalf("round trip mismatch: %v %q", err, got)
	}
}

func TestHTTPBlobReadMissingIsNotExist(t *testing.T) {
	srv := httptest.NewServer(newMemBlobServer())
	defer srv.Close()

	remote, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = remote.ReadObject(t.Context(), "sha1:deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", filepath.Join(t.TempDir(), "x"), t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("got %v, want os.ErrNotExist", err)
	}
}
