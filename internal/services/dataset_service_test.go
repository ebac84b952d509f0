package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	"salespulse/internal/dataset"
)

const sampleCSV = "Item_Identifier,Item_MRP,Item_Outlet_Sales\n" +
	"FDA15,249.80,3735.14\n" +
	"DRC01,48.27,443.42\n" +
	"FDN15,141.62,2097.27\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDatasetService(t *testing.T) (*DatasetService, *config.Paths) {
	t.Helper()

	cfg := config.Default()
	paths := config.PathsFor(t.TempDir(), cfg.Paths)
	require.NoError(t, paths.EnsureDirectories())

	svc := NewDatasetServiceWithLogger(cfg, paths, dataset.NewStore(), nil, testLogger())
	return svc, paths
}

func uploadsDirEntries(t *testing.T, paths *config.Paths) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	return entries
}

// TestDatasetServiceUpload covers the upload path end to end
func TestDatasetServiceUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores file and registers dataset", func(t *testing.T) {
		svc, paths := newTestDatasetService(t)

		res, err := svc.Upload(ctx, "sales.csv", strings.NewReader(sampleCSV))
		require.NoError(t, err)

		assert.Equal(t, "sales.csv", res.Dataset.OriginalName)
		assert.Equal(t, 3, res.Dataset.Rows)
		assert.Equal(t, 3, res.Dataset.Columns)
		assert.Equal(t, 0, res.Dataset.MissingCells)
		assert.Equal(t, int64(len(sampleCSV)), res.Dataset.SizeBytes)
		assert.Len(t, res.Dataset.Fingerprint, 64)
		assert.FileExists(t, res.Dataset.StoredPath)

		require.NotNil(t, res.Preview)
		assert.Equal(t, []string{"Item_Identifier", "Item_MRP", "Item_Outlet_Sales"}, res.Preview.Columns)
		assert.Len(t, res.Preview.Rows, 3)
		assert.Equal(t, 3, res.Preview.TotalRows)

		// Stored under a UUID prefix so repeated names cannot collide
		entries := uploadsDirEntries(t, paths)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Name(), res.Dataset.ID)
		assert.Contains(t, entries[0].Name(), "sales.csv")
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		svc, paths := newTestDatasetService(t)

		_, err := svc.Upload(ctx, "notes.txt", strings.NewReader("hello"))
		assert.ErrorIs(t, err, ErrUnsupportedExtension)
		assert.Empty(t, uploadsDirEntries(t, paths))
	})

	t.Run("rejects oversized file and removes partial", func(t *testing.T) {
		svc, paths := newTestDatasetService(t)
		svc.config.Upload.MaxBytes = 16

		_, err := svc.Upload(ctx, "sales.csv", strings.NewReader(sampleCSV))
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Empty(t, uploadsDirEntries(t, paths))
	})

	t.Run("rejects unparseable file and removes it", func(t *testing.T) {
		svc, paths := newTestDatasetService(t)

		_, err := svc.Upload(ctx, "empty.csv", strings.NewReader(""))
		assert.ErrorIs(t, err, dataset.ErrEmptyFile)
		assert.Empty(t, uploadsDirEntries(t, paths))
	})

	t.Run("accepts exactly the size limit", func(t *testing.T) {
		svc, _ := newTestDatasetService(t)
		svc.config.Upload.MaxBytes = int64(len(sampleCSV))

		res, err := svc.Upload(ctx, "sales.csv", strings.NewReader(sampleCSV))
		require.NoError(t, err)
		assert.Equal(t, int64(len(sampleCSV)), res.Dataset.SizeBytes)
	})
}

// TestDatasetServiceLifecycle covers get, list, preview and delete
func TestDatasetServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDatasetService(t)

	res, err := svc.Upload(ctx, "sales.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	id := res.Dataset.ID

	t.Run("Get", func(t *testing.T) {
		got, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "sales.csv", got.OriginalName)
	})

	t.Run("Get unknown id", func(t *testing.T) {
		_, err := svc.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
	})

	t.Run("List", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].ID)
	})

	t.Run("Preview re-reads the stored file", func(t *testing.T) {
		preview, err := svc.Preview(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, preview.TotalRows)
		assert.Equal(t, "FDA15", preview.Rows[0][0])
	})

	t.Run("Delete removes record and file", func(t *testing.T) {
		stored := res.Dataset.StoredPath

		var forgotten string
		svc.OnDelete(func(deletedID string) { forgotten = deletedID })

		removed, err := svc.Delete(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, removed.ID)
		assert.Equal(t, id, forgotten)
		assert.NoFileExists(t, stored)

		_, err = svc.Get(ctx, id)
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
	})

	t.Run("Delete unknown id", func(t *testing.T) {
		_, err := svc.Delete(ctx, uuid.New().String())
		assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
	})
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sales.csv", "sales.csv"},
		{"my sales data.csv", "my_sales_data.csv"},
		{"../../etc/passwd.csv", "passwd.csv"},
		{"übersicht.csv", "_bersicht.csv"},
		{"", "upload"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeFileName(tc.in), "input %q", tc.in)
	}
}
