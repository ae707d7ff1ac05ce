package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"filehost/logger"
	"filehost/middleware"
	"filehost/models"
	"filehost/storage"
)

// filePathPattern matches "/<id>" with an optional cosmetic extension the
// uploader may append to the share link. Only the id part is looked up.
var filePathPattern = regexp.MustCompile(`^/([A-Za-z0-9_-]{7,14})(?:\.[A-Za-z0-9]+)?$`)

// FileID extracts the file id from a request path, or "" when the path is
// not a share link.
func FileID(path string) string {
	m := filePathPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// ServeFile delivers the bytes for one stored file. Unsafe content types are
// forced into a download under an opaque type; everything else renders
// inline.
// @Summary Download a file
// @Tags files
// @Produce octet-stream
// @Param id path string true "file id"
// @Success 200 {file} binary
// @Failure 404 {object} models.APIResponse
// @Router /{id} [get]
func ServeFile(w http.ResponseWriter, r *http.Request, id string) {
	f, err := store.GetFileByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("lookup of %s failed: %v", id, err)
		}
		writeJSON(w, http.StatusNotFound, models.ErrorResponse("file not found", nil))
		return
	}

	if !f.IsVisible() {
		logger.Warn("%s tried to view deleted file %s", middleware.ClientIP(r), id)
		writeJSON(w, http.StatusNotFound, models.ErrorResponse("file not found", nil))
		return
	}

	buf, err := f.Buffer()
	if err != nil {
		logger.Error("bytes missing for %s ('%s'): %v", f.ID, f.Name, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse("file could not be read", nil))
		return
	}

	servedType, inline := storage.ContentPolicy(f.MimeType)
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", servedType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("%s; filename=%q", disposition, url.QueryEscape(f.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf)

	logger.Debug("served %s ('%s') to %s", f.ID, f.Name, middleware.ClientIP(r))
}
