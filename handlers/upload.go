package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"filehost/logger"
	"filehost/middleware"
	"filehost/models"
	"filehost/storage"
)

// uploadMemoryLimit is how much of a multipart body stays in memory before
// spilling to the parser's own temp files.
const uploadMemoryLimit = 32 << 20

// Upload ingests one or more files from a multipart form. Requires the
// upload privilege; the caller is identified by a Bearer token or by the
// form field "user" carrying their account id.
//
// Every file gets its own outcome; one file failing never aborts the rest.
// @Summary Upload files
// @Tags files
// @Accept mpfd
// @Produce json
// @Param files formData file true "files to store"
// @Param user formData string false "account id when no Bearer token is sent"
// @Success 200 {object} models.APIResponse{data=[]models.FileOutcome}
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /api/upload [post]
func Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse("failed to parse upload request", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	user := uploadCaller(w, r)
	if user == nil {
		return
	}
	if !user.CanUpload() {
		logger.Warn("unauthorized upload attempt from %s: %s", user.ID, middleware.ClientIP(r))
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("you may not upload files", nil))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse("no files attached", nil))
		return
	}

	ip := middleware.ClientIP(r)
	outcomes := make([]models.FileOutcome, 0, len(headers))
	for _, header := range headers {
		outcomes = append(outcomes, addUploadedFile(r, header, user, ip))
	}

	// Mirror the single-file case onto the status code; batches always
	// report per file.
	status := http.StatusOK
	if len(outcomes) == 1 && outcomes[0].Status == "error" {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, models.SuccessResponse("upload processed", outcomes))
}

// uploadCaller resolves the uploading user from a Bearer token or the "user"
// form field. Writes the 401 itself and returns nil when anonymous.
func uploadCaller(w http.ResponseWriter, r *http.Request) *models.UserRecord {
	id := ""

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := sessions.Validate(parts[1]); err == nil {
				id = claims.UserID
			}
		}
	}
	if id == "" {
		id = r.FormValue("user")
	}
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("you must enter your own user ID", nil))
		return nil
	}

	user, err := authEngine.GetUserByID(r.Context(), id)
	if err != nil {
		logger.Warn("unauthorized upload attempt from anonymous IP %s", middleware.ClientIP(r))
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("invalid user", nil))
		return nil
	}
	return user
}

// addUploadedFile lands one part in the upload directory and hands it to the
// storage engine.
func addUploadedFile(r *http.Request, header *multipart.FileHeader, user *models.UserRecord, ip string) models.FileOutcome {
	name := filepath.Base(strings.TrimSpace(header.Filename))
	outcome := models.FileOutcome{Name: name, Status: "error"}

	if name == "" || name == "." {
		outcome.Message = "missing filename"
		return outcome
	}

	src, err := landPart(header)
	if err != nil {
		logger.Error("%s upload failed to land: %v", ip, err)
		outcome.Message = "could not receive file"
		return outcome
	}

	f, err := store.AddFile(r.Context(), storage.UploadDescriptor{
		OriginalFilename: name,
		DeclaredSize:     header.Size,
		SourcePath:       src,
		PreserveSource:   false,
		UploaderIP:       ip,
	})
	if err != nil {
		// The move may not have consumed the landed copy.
		os.Remove(src)

		logger.Error("%s upload failed: %v", ip, err)
		outcome.Message = uploadFailureMessage(err)
		return outcome
	}

	logger.Info("%s (%s) uploaded a file: %s ('%s': %s) from %s",
		user.ID, user.Name, f.ID, f.Name, humanize.Bytes(uint64(f.Size)), ip)

	outcome.Status = "ok"
	outcome.ID = f.ID
	outcome.Size = f.Size
	outcome.URL = f.PublicURL()
	outcome.Message = "uploaded"
	return outcome
}

// landPart copies a multipart part into the upload directory so the engine
// receives a plain local path.
func landPart(header *multipart.FileHeader) (string, error) {
	part, err := header.Open()
	if err != nil {
		return "", err
	}
	defer part.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(cfg.UploadDir, "upload-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, part); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func uploadFailureMessage(err error) string {
	var ue *storage.UploadError
	if errors.As(err, &ue) {
		switch ue.Reason {
		case storage.UploadTooLarge:
			return "file too large"
		case storage.UploadPersistenceFailure:
			return "could not record file"
		default:
			return "could not store file"
		}
	}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "unknown error"
}
