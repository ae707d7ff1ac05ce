package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"filehost/auth"
	"filehost/logger"
	"filehost/middleware"
	"filehost/models"
)

// requireAdmin loads the session's user fresh from the store and checks the
// admin privilege. Claims are not trusted for authorization; revocations
// must take effect immediately.
func requireAdmin(w http.ResponseWriter, r *http.Request) *models.UserRecord {
	id, _ := r.Context().Value("user_id").(string)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("you must enter your own user ID", nil))
		return nil
	}

	user, err := authEngine.GetUserByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("invalid user", nil))
		return nil
	}
	if !user.IsAdmin() {
		logger.Warn("unauthorized admin API attempt from %s: %s", user.ID, middleware.ClientIP(r))
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("you are not an admin", nil))
		return nil
	}
	return user
}

// CreateUser adds an account. Admin only.
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateUserRequest true "new account"
// @Success 201 {object} models.APIResponse{data=models.UserRecord}
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /api/users [post]
func CreateUser(w http.ResponseWriter, r *http.Request) {
	admin := requireAdmin(w, r)
	if admin == nil {
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse("invalid request body", err))
		return
	}

	if len(req.Privs) == 0 {
		req.Privs = cfg.DefaultPrivs
		logger.Debug("no privileges specified for '%s', using defaults %v", req.Name, req.Privs)
	}

	user, err := authEngine.AddUser(r.Context(), auth.UserInfo{
		Name:  req.Name,
		Privs: req.Privs,
	})
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse(ve.Error(), nil))
			return
		}
		logger.Error("could not add user: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse("user add failed", nil))
		return
	}

	logger.Info("added new user %s (%s) (authorized by %s, from %s)",
		user.ID, user.Name, admin.ID, middleware.ClientIP(r))

	writeJSON(w, http.StatusCreated, models.SuccessResponse("user created", user))
}

// ListUsers returns every account, oldest first. Admin only.
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.UserRecord}
// @Failure 401 {object} models.APIResponse
// @Router /api/users [get]
func ListUsers(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	users, err := authEngine.GetAllUsers(r.Context())
	if err != nil {
		logger.Error("could not list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse("user list failed", nil))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("users retrieved", users))
}
