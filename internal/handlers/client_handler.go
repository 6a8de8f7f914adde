package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/Dias221467/Sales_CRM/internal/services"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientService is the part of services.ClientService the handlers use.
type ClientService interface {
	CreateClient(ctx context.Context, ownerID primitive.ObjectID, client *models.Client) (*models.Client, error)
	GetClient(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Client, error)
	ListClients(ctx context.Context, ownerID primitive.ObjectID) ([]models.Client, error)
	UpdateClient(ctx context.Context, ownerID, id primitive.ObjectID, update services.ClientUpdate) (*models.Client, error)
	DeleteClient(ctx context.Context, ownerID, id primitive.ObjectID) error
	LogInteraction(ctx context.Context, ownerID, clientID primitive.ObjectID, interaction *models.Interaction) (*models.Interaction, error)
	GetInteractions(ctx context.Context, ownerID, clientID primitive.ObjectID, limit int) ([]models.Interaction, error)
}

// ReminderReader exposes reminder history and counts.
type ReminderReader interface {
	ListForSubject(ctx context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error)
	CountPending(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// ClientHandler handles HTTP requests related to clients and their
// interactions.
type ClientHandler struct {
	Service   ClientService
	Reminders ReminderReader
}

// NewClientHandler creates a new instance of ClientHandler.
func NewClientHandler(service ClientService, reminders ReminderReader) *ClientHandler {
	return &ClientHandler{Service: service, Reminders: reminders}
}

func clientIDFromPath(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

// POST /clients
func (h *ClientHandler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}

	var client models.Client
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during client creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	created, err := h.Service.CreateClient(r.Context(), ownerID, &client)
	if err != nil {
		writeServiceError(w, err, "create client")
		return
	}

	logrus.WithFields(logrus.Fields{
		"owner_id":  ownerID.Hex(),
		"client_id": created.ID.Hex(),
	}).Info("Client successfully created")
	writeJSON(w, http.StatusCreated, created)
}

// GET /clients
func (h *ClientHandler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}

	clients, err := h.Service.ListClients(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, err, "list clients")
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// GET /clients/{id}
func (h *ClientHandler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	client, err := h.Service.GetClient(r.Context(), ownerID, clientID)
	if err != nil {
		writeServiceError(w, err, "get client")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// PUT /clients/{id}
func (h *ClientHandler) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	var update services.ClientUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	client, err := h.Service.UpdateClient(r.Context(), ownerID, clientID, update)
	if err != nil {
		writeServiceError(w, err, "update client")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// DELETE /clients/{id}
func (h *ClientHandler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteClient(r.Context(), ownerID, clientID); err != nil {
		writeServiceError(w, err, "delete client")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Client deleted"})
}

// POST /clients/{id}/interactions
func (h *ClientHandler) LogInteractionHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	var interaction models.Interaction
	if err := json.NewDecoder(r.Body).Decode(&interaction); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	logged, err := h.Service.LogInteraction(r.Context(), ownerID, clientID, &interaction)
	if err != nil {
		writeServiceError(w, err, "log interaction")
		return
	}
	writeJSON(w, http.StatusCreated, logged)
}

// GET /clients/{id}/interactions?limit=N
func (h *ClientHandler) GetInteractionsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	interactions, err := h.Service.GetInteractions(r.Context(), ownerID, clientID, limit)
	if err != nil {
		writeServiceError(w, err, "get interactions")
		return
	}
	if interactions == nil {
		interactions = []models.Interaction{}
	}
	writeJSON(w, http.StatusOK, interactions)
}

// GET /clients/{id}/reminders
func (h *ClientHandler) GetClientRemindersHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := callerID(w, r)
	if !ok {
		return
	}
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	if _, err := h.Service.GetClient(r.Context(), ownerID, clientID); err != nil {
		writeServiceError(w, err, "get client")
		return
	}

	reminders, err := h.Reminders.ListForSubject(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, err, "get reminders")
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	logger.Log.Debugf("Fetched %d reminders for client %s", len(reminders), clientID.Hex())
	writeJSON(w, http.StatusOK, reminders)
}
