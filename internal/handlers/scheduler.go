package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleSchedulerJobs serves the read-only job snapshot.
func (h *APIHandler) HandleSchedulerJobs(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is disabled")
		return
	}

	writeJSON(w, http.StatusOK, h.sched.Snapshot())
}

// HandleRunJob fires a job outside its schedule.
func (h *APIHandler) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is disabled")
		return
	}

	// The run outlives the request, so it is not bound to r.Context().
	id := mux.Vars(r)["id"]
	if err := h.sched.RunNow(context.Background(), id); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered", "job": id})
}
