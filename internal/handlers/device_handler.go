package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceRegistry manages the caller's push tokens.
type DeviceRegistry interface {
	Register(ctx context.Context, userID primitive.ObjectID, token string) error
	Unregister(ctx context.Context, userID primitive.ObjectID, token string) error
	Tokens(ctx context.Context, userID primitive.ObjectID) ([]string, error)
}

type DeviceHandler struct {
	Service DeviceRegistry
}

func NewDeviceHandler(service DeviceRegistry) *DeviceHandler {
	return &DeviceHandler{Service: service}
}

// POST /devices
func (h *DeviceHandler) RegisterDeviceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.Register(r.Context(), userID, req.Token); err != nil {
		writeServiceError(w, err, "register device")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Device registered"})
}

// GET /devices
func (h *DeviceHandler) ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	tokens, err := h.Service.Tokens(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list devices")
		return
	}
	if tokens == nil {
		tokens = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tokens": tokens})
}

// DELETE /devices/{token}
func (h *DeviceHandler) UnregisterDeviceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Unregister(r.Context(), userID, mux.Vars(r)["token"]); err != nil {
		writeServiceError(w, err, "unregister device")
		return
	}
	logger.Log.WithField("user_id", userID.Hex()).Info("Device unregistered")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device unregistered"})
}
