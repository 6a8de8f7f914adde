package handlers

import (
	"net/http"

	"github.com/Dias221467/Sales_CRM/internal/scheduler"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
)

// SchedulerControl is the operational surface of the reminder scheduler.
type SchedulerControl interface {
	Status() scheduler.Status
	RunNow() bool
}

type ReminderHandler struct {
	Reminders ReminderReader
	Scheduler SchedulerControl
}

func NewReminderHandler(reminders ReminderReader, sched SchedulerControl) *ReminderHandler {
	return &ReminderHandler{Reminders: reminders, Scheduler: sched}
}

type reminderStatusResponse struct {
	Pending   int64            `json:"pending"`
	Scheduler scheduler.Status `json:"scheduler"`
}

// GET /reminders/status
func (h *ReminderHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	pending, err := h.Reminders.CountPending(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "count pending reminders")
		return
	}
	writeJSON(w, http.StatusOK, reminderStatusResponse{
		Pending:   pending,
		Scheduler: h.Scheduler.Status(),
	})
}

// POST /admin/reminders/run
func (h *ReminderHandler) RunNowHandler(w http.ResponseWriter, r *http.Request) {
	if !h.Scheduler.RunNow() {
		http.Error(w, "A reminder run is already in progress", http.StatusConflict)
		return
	}
	logger.Log.Info("Manual reminder run completed")
	writeJSON(w, http.StatusOK, h.Scheduler.Status())
}
