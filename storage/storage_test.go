package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehost/database"
	"filehost/models"
)

func newTestStorage(t *testing.T) (*Storage, *database.Collection) {
	t.Helper()

	dir := t.TempDir()
	files, err := database.OpenCollection(filepath.Join(dir, "meta.db"), "files", false)
	require.NoError(t, err)
	t.Cleanup(func() { files.Close() })

	s, err := New(Options{
		Dir:           filepath.Join(dir, "storage"),
		MaxUploadSize: 1 << 20,
		MaxCache:      5,
	}, files)
	require.NoError(t, err)
	return s, files
}

func landUpload(t *testing.T, content string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	return src
}

func TestAddFileStatOverridesDeclaredSize(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	src := landUpload(t, "ten bytes!")
	f, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "note.txt",
		DeclaredSize:     3, // a lie; stat wins
		SourcePath:       src,
		UploaderIP:       "10.0.0.1",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 10, f.Size)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.True(t, f.IsVisible())
	assert.Equal(t, "/"+f.ID, f.PublicURL())
	assert.Positive(t, f.UploadTime)

	onDisk, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.Equal(t, onDisk.Size(), f.Size)

	// The source was consumed by the move.
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	buf, err := f.Buffer()
	require.NoError(t, err)
	assert.Equal(t, "ten bytes!", string(buf))
}

func TestAddFilePreserveSourceCopies(t *testing.T) {
	s, _ := newTestStorage(t)

	src := landUpload(t, "keep me")
	f, err := s.AddFile(context.Background(), UploadDescriptor{
		OriginalFilename: "asset.png",
		DeclaredSize:     7,
		SourcePath:       src,
		PreserveSource:   true,
	})
	require.NoError(t, err)

	// Original survives, destination holds the same bytes.
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	stored, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, orig, stored)
}

func TestAddFileTooLargeLeavesNothing(t *testing.T) {
	s, files := newTestStorage(t)
	ctx := context.Background()

	src := landUpload(t, "content")
	_, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "big.bin",
		DeclaredSize:     2 << 20,
		SourcePath:       src,
	})

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, UploadTooLarge, ue.Reason)

	// No metadata record, no stored bytes, source untouched.
	n, err := files.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestAddFileMissingSourceIsIOFailure(t *testing.T) {
	s, files := newTestStorage(t)
	ctx := context.Background()

	_, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "ghost.txt",
		DeclaredSize:     1,
		SourcePath:       filepath.Join(t.TempDir(), "never-landed"),
	})

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, UploadIOFailure, ue.Reason)

	// The failed move must not reach persistence.
	n, err := files.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddFileValidation(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	var ve *models.ValidationError

	_, err := s.AddFile(ctx, UploadDescriptor{DeclaredSize: 1, SourcePath: "x"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "filename", ve.Field)

	_, err = s.AddFile(ctx, UploadDescriptor{OriginalFilename: "a.txt", DeclaredSize: -1, SourcePath: "x"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "size", ve.Field)
}

func TestGetFileByID(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	f, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "note.txt",
		DeclaredSize:     5,
		SourcePath:       landUpload(t, "hello"),
	})
	require.NoError(t, err)

	// Cached straight from AddFile.
	got, err := s.GetFileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Same(t, f, got)

	// After a cache clear the record is rehydrated from the store.
	s.ClearCache()
	got, err = s.GetFileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.NotSame(t, f, got)
	assert.Equal(t, f.FileRecord, got.FileRecord)
	assert.Equal(t, 1, s.CacheLen())

	_, err = s.GetFileByID(ctx, "absent9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedRecordHiddenFromFreshLookupButNotCache(t *testing.T) {
	s, files := newTestStorage(t)
	ctx := context.Background()

	f, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "note.txt",
		DeclaredSize:     5,
		SourcePath:       landUpload(t, "hello"),
	})
	require.NoError(t, err)

	// Soft-delete behind the engine's back.
	f2 := *f
	f2.Deleted = true
	doc, err := f2.Encode()
	require.NoError(t, err)
	require.NoError(t, files.MarkDeleted(ctx, f.ID, 1, doc))

	// The cache still serves the pre-delete instance: hits are eventually
	// consistent by design and visibility is the caller's check.
	cached, err := s.GetFileByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, cached.IsVisible())

	// A fresh lookup is indistinguishable from never-existed.
	s.ClearCache()
	_, err = s.GetFileByID(ctx, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBufferMissingBytes(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	f, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "note.txt",
		DeclaredSize:     5,
		SourcePath:       landUpload(t, "hello"),
	})
	require.NoError(t, err)

	// Remove the bytes out-of-band; metadata still claims existence.
	require.NoError(t, os.Remove(f.Path()))

	_, err = f.Buffer()
	assert.ErrorIs(t, err, ErrBytesMissing)

	// Not reconciled: the record is still retrievable.
	s.ClearCache()
	_, err = s.GetFileByID(ctx, f.ID)
	assert.NoError(t, err)
}

func TestStoreAndCacheAreIndependent(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	// Push enough files through to evict the first ones (MaxCache is 5).
	var first *File
	for i := 0; i < 7; i++ {
		f, err := s.AddFile(ctx, UploadDescriptor{
			OriginalFilename: "note.txt",
			DeclaredSize:     5,
			SourcePath:       landUpload(t, "hello"),
		})
		require.NoError(t, err)
		if i == 0 {
			first = f
		}
	}

	assert.Nil(t, s.cache.Get(first.ID), "oldest upload should be evicted")

	// Still retrievable through the store.
	got, err := s.GetFileByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.FileRecord, got.FileRecord)
}

func TestCollectStats(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	_, err := s.AddFile(ctx, UploadDescriptor{
		OriginalFilename: "note.txt",
		DeclaredSize:     5,
		SourcePath:       landUpload(t, "hello"),
	})
	require.NoError(t, err)

	stats, err := s.CollectStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Records)
	assert.Equal(t, 1, stats.Cached)
	assert.EqualValues(t, 5, stats.DiskBytes)
}
