// Package middleware carries the HTTP cross-cutting pieces: access logging,
// session authentication, response headers and the chain helper wiring them
// onto individual handlers.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"filehost/auth"
	"filehost/logger"
	"filehost/models"
)

// Chain applies middlewares right-to-left around handler.
func Chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// JSONHeader marks the response as JSON.
func JSONHeader(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	}
}

// CORS allows the static front-end to call the API from anywhere.
func CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// Session validates the Bearer token and stores the caller's id and name in
// the request context. Privilege decisions are NOT made from token claims;
// handlers re-load the user so checks reflect current store state.
func Session(sessions *auth.Sessions) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Context().Value("request_id")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         ClientIP(r),
				}).Warn("missing authorization header")

				writeAuthFailure(w, "Authorization required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeAuthFailure(w, "Invalid authorization header format")
				return
			}

			claims, err := sessions.Validate(parts[1])
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         ClientIP(r),
					"error":      err.Error(),
				}).Warn("invalid or expired token")

				writeAuthFailure(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), "user_id", claims.UserID)
			ctx = context.WithValue(ctx, "user_name", claims.Name)

			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

func writeAuthFailure(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse(message, nil))
}
