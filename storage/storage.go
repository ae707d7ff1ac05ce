// Package storage is the file storage engine: it ingests uploaded byte
// streams, assigns identity, persists bytes and metadata, and serves
// retrieval behind a bounded FIFO cache.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"filehost/database"
	"filehost/logger"
	"filehost/models"
	"filehost/shortid"
)

// UploadDescriptor describes an already-landed upload: the HTTP layer has
// written the body to a local temporary file before the engine is involved.
type UploadDescriptor struct {
	OriginalFilename string
	// DeclaredSize is the caller-supplied size. It gates the too-large check
	// but the persisted size always comes from a post-copy stat.
	DeclaredSize int64
	SourcePath   string
	// PreserveSource copies instead of renaming, for sources whose only copy
	// must survive (pre-existing assets, test fixtures).
	PreserveSource bool
	UploaderIP     string
}

// Storage orchestrates id generation, the cache, the metadata collection and
// the on-disk byte store.
type Storage struct {
	dir       string
	maxUpload int64
	files     *database.Collection
	cache     *Cache
}

// Options configures a Storage engine.
type Options struct {
	// Dir holds one file per id.
	Dir string
	// MaxUploadSize rejects uploads whose declared size exceeds it.
	MaxUploadSize int64
	// MaxCache bounds the in-memory file cache.
	MaxCache int
}

// New creates the engine, making the storage directory on first run.
func New(opts Options, files *database.Collection) (*Storage, error) {
	if _, err := os.Stat(opts.Dir); os.IsNotExist(err) {
		logger.Info("first run? making directory '%s'", opts.Dir)
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	return &Storage{
		dir:       opts.Dir,
		maxUpload: opts.MaxUploadSize,
		files:     files,
		cache:     NewCache(opts.MaxCache),
	}, nil
}

// AddFile ingests one upload. The steps are strictly ordered: size gate,
// id, move/copy, stat, persist, cache. A failure before persistence leaves
// no metadata behind; a persistence failure after a successful move orphans
// the bytes, which is accepted and logged rather than repaired.
func (s *Storage) AddFile(ctx context.Context, desc UploadDescriptor) (*File, error) {
	if desc.OriginalFilename == "" {
		return nil, &models.ValidationError{Field: "filename", Reason: "must not be empty"}
	}
	if desc.DeclaredSize < 0 {
		return nil, &models.ValidationError{Field: "size", Reason: "missing declared size"}
	}

	// Checked before touching the filesystem.
	if desc.DeclaredSize > s.maxUpload {
		return nil, &UploadError{Reason: UploadTooLarge}
	}

	id, err := shortid.New()
	if err != nil {
		return nil, &UploadError{Reason: UploadIOFailure, Err: err}
	}
	dest := filepath.Join(s.dir, id)

	logger.Debug("adding new file '%s' as %s", desc.OriginalFilename, id)

	if err := s.placeBytes(desc, id, dest); err != nil {
		return nil, &UploadError{Reason: UploadIOFailure, Err: err}
	}

	// The stat result, not the declared size, is authoritative.
	info, err := os.Stat(dest)
	if err != nil {
		logger.Warn("%s: stat failed on storage file '%s': %v", id, dest, err)
		return nil, &UploadError{Reason: UploadIOFailure, Err: err}
	}

	f := &File{
		FileRecord: models.FileRecord{
			ID:         id,
			Name:       desc.OriginalFilename,
			MimeType:   ResolveMime(desc.OriginalFilename),
			Size:       info.Size(),
			UploadTime: time.Now().UnixMilli(),
			Deleted:    false,
			UploaderIP: desc.UploaderIP,
		},
		path: dest,
	}

	doc, err := f.Encode()
	if err != nil {
		return nil, &UploadError{Reason: UploadPersistenceFailure, Err: err}
	}
	rec := database.Record{
		ID:      f.ID,
		Name:    f.Name,
		Deleted: false,
		Created: f.UploadTime,
		Doc:     doc,
	}
	if err := s.files.Insert(ctx, rec); err != nil {
		// Bytes are already at dest: a known, accepted orphan.
		logger.Warn("%s: metadata insert failed, orphaning '%s': %v", id, dest, err)
		return nil, &UploadError{Reason: UploadPersistenceFailure, Err: err}
	}

	s.cache.Put(f)

	logger.Info("%s: stored '%s' (%s, %s)", f.ID, f.Name, f.MimeType, humanize.Bytes(uint64(f.Size)))
	return f, nil
}

// placeBytes lands the source at dest, copying when the source must be
// preserved and renaming otherwise.
func (s *Storage) placeBytes(desc UploadDescriptor, id, dest string) error {
	if desc.PreserveSource {
		logger.Debug("%s: copying '%s' to '%s' (original preserved)", id, desc.SourcePath, dest)
		return copyFile(desc.SourcePath, dest)
	}

	logger.Debug("%s: renaming '%s' to '%s'", id, desc.SourcePath, dest)
	if err := os.Rename(desc.SourcePath, dest); err == nil {
		return nil
	}
	// The upload directory may sit on another filesystem; fall back to a
	// copy and consume the source by hand.
	if err := copyFile(desc.SourcePath, dest); err != nil {
		return err
	}
	return os.Remove(desc.SourcePath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source '%s': %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create '%s': %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy to '%s': %w", dst, err)
	}
	return out.Close()
}

// GetFileByID returns the file for id. A cache hit is served as-is, deleted
// flag included; only a store lookup filters soft-deleted records. Misses
// of either kind surface as ErrNotFound.
func (s *Storage) GetFileByID(ctx context.Context, id string) (*File, error) {
	if f := s.cache.Get(id); f != nil {
		logger.Debug("used cached file %s", id)
		return f, nil
	}

	logger.Debug("fetching file %s", id)
	rec, err := s.files.FindOne(ctx, "id", id, false)
	if err != nil {
		if errors.Is(err, database.ErrNoDocument) {
			return nil, ErrNotFound
		}
		logger.Error("store lookup for %s failed: %v", id, err)
		return nil, ErrNotFound
	}

	f, err := s.hydrate(rec)
	if err != nil {
		logger.Error("could not hydrate %s: %v", id, err)
		return nil, ErrNotFound
	}

	s.cache.Put(f)
	return f, nil
}

func (s *Storage) hydrate(rec *database.Record) (*File, error) {
	fr, err := models.DecodeFileRecord(rec.Doc)
	if err != nil {
		return nil, err
	}
	return &File{
		FileRecord: *fr,
		path:       filepath.Join(s.dir, fr.ID),
	}, nil
}

// ClearCache drops every cached file.
func (s *Storage) ClearCache() {
	s.cache.Clear()
}

// CacheLen reports current cache occupancy.
func (s *Storage) CacheLen() int {
	return s.cache.Len()
}

// Stats summarises the engine for the periodic report.
type Stats struct {
	Records   int64
	Cached    int
	DiskBytes uint64
}

// CollectStats counts live records and walks the storage directory. Log-only
// consumers; this never reconciles metadata against bytes.
func (s *Storage) CollectStats(ctx context.Context) (Stats, error) {
	records, err := s.files.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	var disk uint64
	err = filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		disk += uint64(info.Size())
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk storage directory: %w", err)
	}

	return Stats{Records: records, Cached: s.cache.Len(), DiskBytes: disk}, nil
}
