package handlers

import (
	"encoding/json"
	"net/http"

	"filehost/logger"
	"filehost/middleware"
	"filehost/models"
)

// Login exchanges an account id for a session token. The id is the
// credential; an unknown id and a malformed one answer identically.
// @Summary Log in with an account id
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "account id"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse}
// @Failure 401 {object} models.APIResponse
// @Router /api/login [post]
func Login(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("you must enter your own user ID", nil))
		return
	}

	user, err := authEngine.GetUserByID(r.Context(), req.User)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"ip":         middleware.ClientIP(r),
		}).Warn("login attempt with invalid user id")

		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("invalid user", nil))
		return
	}

	token, expires, err := sessions.Issue(user)
	if err != nil {
		logger.Error("could not issue session for %s: %v", user.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse("failed to issue session", nil))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"user_id":    user.ID,
		"name":       user.Name,
	}).Info("login successful")

	writeJSON(w, http.StatusOK, models.SuccessResponse("login successful", models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      user,
	}))
}
