package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/server/config"
)

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Ping(ctx context.Context) error { return nil }

func fileTestConfig() *config.Config {
	return &config.Config{
		MaxUploadSize:     1 << 20,
		AllowedExtensions: []string{".pptx", ".docx", ".xlsx"},
	}
}

func TestUploadAndOpenContent(t *testing.T) {
	files := newFakeFilesRepo()
	store := newFakeBlobStore()
	s := NewFileService(nil, &fakeRepoManager{files: files}, store, fileTestConfig())
	ctx := context.Background()

	content := []byte("presentation bytes")
	file, err := s.Upload(ctx, "Q3 report.docx", int64(len(content)), bytes.NewReader(content), 5)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if file.ID == 0 {
		t.Fatal("expected assigned file id")
	}
	if file.OriginalName != "Q3 report.docx" {
		t.Fatalf("original name = %q", file.OriginalName)
	}
	if file.UploadedBy != 5 {
		t.Fatalf("uploaded by = %d, want 5", file.UploadedBy)
	}
	if !strings.HasSuffix(file.StorageKey, ".docx") {
		t.Fatalf("storage key %q must keep the extension", file.StorageKey)
	}
	if file.ContentType == "" {
		t.Fatal("content type must not be empty")
	}

	rc, err := s.OpenContent(ctx, file)
	if err != nil {
		t.Fatalf("OpenContent error: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content round trip mismatch: got %q", got)
	}
}

func TestUploadValidation(t *testing.T) {
	s := NewFileService(nil, &fakeRepoManager{files: newFakeFilesRepo()}, newFakeBlobStore(), fileTestConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		size     int64
		want     error
	}{
		{"too large", "deck.pptx", 1<<20 + 1, common.ErrorFileTooLarge},
		{"exe rejected", "setup.exe", 10, common.ErrorUnsupportedFileType},
		{"no extension", "README", 10, common.ErrorUnsupportedFileType},
		{"pdf rejected", "doc.pdf", 10, common.ErrorUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(ctx, tt.filename, tt.size, strings.NewReader("x"), 1)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Upload error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUploadExtensionCaseInsensitive(t *testing.T) {
	s := NewFileService(nil, &fakeRepoManager{files: newFakeFilesRepo()}, newFakeBlobStore(), fileTestConfig())

	if _, err := s.Upload(context.Background(), "DECK.PPTX", 4, strings.NewReader("data"), 1); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
}

func TestUploadBlobFailure(t *testing.T) {
	store := newFakeBlobStore()
	store.putErr = errors.New("disk full")
	files := newFakeFilesRepo()
	s := NewFileService(nil, &fakeRepoManager{files: files}, store, fileTestConfig())

	if _, err := s.Upload(context.Background(), "deck.pptx", 4, strings.NewReader("data"), 1); err == nil {
		t.Fatal("expected error from blob store")
	}
	if len(files.byID) != 0 {
		t.Fatal("no metadata row must be written when the blob write fails")
	}
}

func TestListAndGet(t *testing.T) {
	files := newFakeFilesRepo()
	addFile(files, 1)
	addFile(files, 2)
	s := NewFileService(nil, &fakeRepoManager{files: files}, newFakeBlobStore(), fileTestConfig())
	ctx := context.Background()

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d files, want 2", len(all))
	}

	got, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != 2 {
		t.Fatalf("Get returned file %d, want 2", got.ID)
	}

	if _, err := s.Get(ctx, 99); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("Get error = %v, want ErrorNotFound", err)
	}
}
