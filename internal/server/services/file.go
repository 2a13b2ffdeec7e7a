package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/server/blob"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/models"
	"github.com/apetrenko/filevault/internal/server/repositories/repomanager"
)

// FileService stores uploaded file content in blob storage and its metadata
// in the database, and streams content back for authorized downloads.
type FileService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	store         blob.Store
	maxUploadSize int64
	allowedExts   map[string]struct{}
}

// NewFileService constructs a FileService over the given blob store.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blob.Store, cfg *config.Config) *FileService {
	exts := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		exts[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &FileService{
		db:            db,
		repomanager:   m,
		store:         store,
		maxUploadSize: cfg.MaxUploadSize,
		allowedExts:   exts,
	}
}

// Upload validates size and extension, streams the content into blob storage
// under a fresh key, and records the metadata row.
func (s *FileService) Upload(ctx context.Context, originalName string, size int64, r io.Reader, uploadedBy int64) (*models.File, error) {
	if size > s.maxUploadSize {
		return nil, common.ErrorFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := s.allowedExts[ext]; !ok {
		return nil, common.ErrorUnsupportedFileType
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := blob.NewStorageKey(ext)
	if err := s.store.Put(ctx, key, io.LimitReader(r, s.maxUploadSize)); err != nil {
		return nil, fmt.Errorf("error storing blob: %w", err)
	}

	file := &models.File{
		StorageKey:   key,
		OriginalName: originalName,
		Size:         size,
		ContentType:  contentType,
		UploadedBy:   uploadedBy,
	}
	created, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("error saving file record: %w", err)
	}
	return created, nil
}

// List returns all uploaded files, newest first.
func (s *FileService) List(ctx context.Context) ([]*models.File, error) {
	return s.repomanager.Files(s.db).List(ctx)
}

// Get returns the metadata row for id.
func (s *FileService) Get(ctx context.Context, id int64) (*models.File, error) {
	return s.repomanager.Files(s.db).Get(ctx, id)
}

// OpenContent opens the stored content of file for streaming. The caller
// closes the reader.
func (s *FileService) OpenContent(ctx context.Context, file *models.File) (io.ReadCloser, error) {
	return s.store.Open(ctx, file.StorageKey)
}

// AllowedExtensions lists the accepted upload extensions, for error messages.
func (s *FileService) AllowedExtensions() []string {
	out := make([]string, 0, len(s.allowedExts))
	for e := range s.allowedExts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
