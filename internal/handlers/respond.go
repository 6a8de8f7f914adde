package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dias221467/Sales_CRM/internal/repository"
	"github.com/Dias221467/Sales_CRM/internal/services"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"github.com/Dias221467/Sales_CRM/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

// writeServiceError maps service and repository errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidClient),
		errors.Is(err, services.ErrInvalidFollowUp),
		errors.Is(err, services.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.WithError(err).Error("Failed to " + action)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

// callerID returns the authenticated user's ID or writes 401.
func callerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		logger.Log.WithError(err).Warn("Token carries a malformed user ID")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	return id, true
}
