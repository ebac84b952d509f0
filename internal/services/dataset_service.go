package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"salespulse/internal/config"
	"salespulse/internal/dataset"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
)

var (
	// ErrUnsupportedExtension indicates an upload with a file type the
	// service does not ingest.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrFileTooLarge indicates an upload above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
)

// Preview is the first rows of a dataset, shown after upload and on demand
type Preview struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// UploadResult is the outcome of a successful upload
type UploadResult struct {
	Dataset *dataset.Dataset `json:"dataset"`
	Preview *Preview         `json:"preview"`
}

// DatasetService stores uploaded sales files and their metadata
type DatasetService struct {
	config   *config.Config
	paths    *config.Paths
	store    *dataset.Store
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	onDelete func(id string)
}

// NewDatasetService creates a dataset service using the default logger
func NewDatasetService(cfg *config.Config, paths *config.Paths, store *dataset.Store) *DatasetService {
	return NewDatasetServiceWithLogger(cfg, paths, store, nil, slog.Default())
}

// NewDatasetServiceWithLogger creates a dataset service with explicit
// observability dependencies. Metrics may be nil.
func NewDatasetServiceWithLogger(cfg *config.Config, paths *config.Paths, store *dataset.Store, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		config:  cfg,
		paths:   paths,
		store:   store,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dataset_service")),
	}
}

// OnDelete registers a callback invoked after a dataset is deleted, used
// to drop per-dataset state held elsewhere (the chat conversation).
func (ds *DatasetService) OnDelete(fn func(id string)) {
	ds.onDelete = fn
}

// Upload streams one multipart file into the uploads directory, validates it
// by loading it, and registers the dataset. The stored file keeps the
// original name under a UUID prefix so repeated uploads never collide.
func (ds *DatasetService) Upload(ctx context.Context, originalName string, src io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !ds.extensionAllowed(ext) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)",
			ErrUnsupportedExtension, ext, strings.Join(ds.config.Upload.AllowedExtensions, ", "))
	}

	id := uuid.New().String()
	storedName := id + "_" + sanitizeFileName(originalName)
	storedPath := ds.paths.GetUploadPath(storedName)

	size, err := ds.saveBounded(storedPath, src)
	if err != nil {
		return nil, err
	}

	// Load once to reject unparseable files before they enter the registry
	table, err := dataset.LoadAny(storedPath)
	if err != nil {
		ds.discard(storedPath)
		return nil, err
	}

	data, err := os.ReadFile(storedPath)
	if err != nil {
		ds.discard(storedPath)
		return nil, fmt.Errorf("failed to read stored upload: %w", err)
	}

	record := &dataset.Dataset{
		ID:           id,
		OriginalName: filepath.Base(originalName),
		StoredPath:   storedPath,
		SizeBytes:    size,
		Rows:         table.NumRows(),
		Columns:      table.NumCols(),
		MissingCells: table.MissingCells(),
		Latin1:       table.Latin1,
		Fingerprint:  dataset.Fingerprint(data),
		UploadedAt:   time.Now().UTC(),
	}
	ds.store.Put(record)

	if ds.metrics != nil {
		ds.metrics.DatasetUploadsTotal.Add(ctx, 1)
		ds.metrics.DatasetUploadBytes.Add(ctx, size)
	}

	ds.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", record.ID),
		slog.String("name", record.OriginalName),
		slog.Int64("size_bytes", size),
		slog.Int("rows", record.Rows),
		slog.Int("columns", record.Columns))

	return &UploadResult{
		Dataset: record,
		Preview: previewFromTable(table),
	}, nil
}

// Get returns one dataset record by id
func (ds *DatasetService) Get(ctx context.Context, id string) (*dataset.Dataset, error) {
	return ds.store.Get(id)
}

// List returns all dataset records, newest first
func (ds *DatasetService) List(ctx context.Context) ([]*dataset.Dataset, error) {
	return ds.store.List(), nil
}

// Preview re-reads a stored dataset and returns its first rows
func (ds *DatasetService) Preview(ctx context.Context, id string) (*Preview, error) {
	record, err := ds.store.Get(id)
	if err != nil {
		return nil, err
	}
	table, err := dataset.LoadAny(record.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", record.OriginalName, err)
	}
	return previewFromTable(table), nil
}

// Delete removes a dataset record and its stored file. A file that is
// already gone does not fail the delete.
func (ds *DatasetService) Delete(ctx context.Context, id string) (*dataset.Dataset, error) {
	record, err := ds.store.Delete(id)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(record.StoredPath); err != nil && !os.IsNotExist(err) {
		ds.logger.WarnContext(ctx, "failed to remove stored dataset file",
			slog.String("dataset_id", id),
			slog.String("path", record.StoredPath),
			slog.String("error", err.Error()))
	}

	if ds.onDelete != nil {
		ds.onDelete(id)
	}

	ds.logger.InfoContext(ctx, "dataset deleted",
		slog.String("dataset_id", id),
		slog.String("name", record.OriginalName))
	return record, nil
}

// saveBounded copies src into a new file at path, failing once the copy
// exceeds the configured limit. Partial files are removed on failure.
func (ds *DatasetService) saveBounded(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, apierrors.NewStorageError("failed to create upload file", err)
	}

	maxBytes := ds.config.Upload.MaxBytes
	written, err := io.Copy(dst, io.LimitReader(src, maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		ds.discard(path)
		return 0, apierrors.NewStorageError("failed to store upload", err)
	case closeErr != nil:
		ds.discard(path)
		return 0, apierrors.NewStorageError("failed to store upload", closeErr)
	case written > maxBytes:
		ds.discard(path)
		return 0, fmt.Errorf("%w (%d bytes max)", ErrFileTooLarge, maxBytes)
	}
	return written, nil
}

func (ds *DatasetService) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ds.logger.Warn("failed to remove rejected upload",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func (ds *DatasetService) extensionAllowed(ext string) bool {
	for _, allowed := range ds.config.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// sanitizeFileName keeps only the base name and replaces characters that are
// unsafe in stored file names
func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "upload"
	}
	return base
}

func previewFromTable(t *dataset.Table) *Preview {
	return &Preview{
		Columns:   t.Columns,
		Rows:      t.Head(config.PreviewRows),
		TotalRows: t.NumRows(),
	}
}
