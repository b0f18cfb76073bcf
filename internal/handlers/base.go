package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sdko-org/sim-fleet/internal/config"
	"github.com/sdko-org/sim-fleet/internal/scheduler"
	"github.com/sdko-org/sim-fleet/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type APIHandler struct {
	cfg   *config.Config
	svc   *service.SIMService
	sched *scheduler.Scheduler
	db    *gorm.DB
	log   *logrus.Entry
}

// NewAPIHandler wires the API surface. sched may be nil when the
// scheduler is disabled by configuration.
func NewAPIHandler(logger *logrus.Logger, cfg *config.Config, svc *service.SIMService, sched *scheduler.Scheduler, db *gorm.DB) *APIHandler {
	return &APIHandler{
		cfg:   cfg,
		svc:   svc,
		sched: sched,
		db:    db,
		log:   logger.WithField("component", "api_handler"),
	}
}

func RegisterRoutes(r *mux.Router, h *APIHandler) {
	r.HandleFunc("/healthz", h.HandleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", h.HandleLogin).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware)

	protected.HandleFunc("/sims", h.HandleListSIMs).Methods("GET")
	protected.HandleFunc("/sims", h.HandleCreateSIM).Methods("POST")
	protected.HandleFunc("/sims/sync-all", h.HandleSyncAllSIMs).Methods("POST")
	protected.HandleFunc("/sims/{iccid}", h.HandleGetSIM).Methods("GET")
	protected.HandleFunc("/sims/{iccid}", h.HandleUpdateSIM).Methods("PATCH")
	protected.HandleFunc("/sims/{iccid}/sync", h.HandleSyncSIM).Methods("POST")
	protected.HandleFunc("/sims/{iccid}/connectivity", h.HandleGetConnectivity).Methods("GET")
	protected.HandleFunc("/sims/{iccid}/connectivity/reset", h.HandleResetConnectivity).Methods("POST")
	protected.HandleFunc("/sims/{iccid}/usage", h.HandleGetUsage).Methods("GET")
	protected.HandleFunc("/sims/{iccid}/usage/sync", h.HandleSyncUsage).Methods("POST")
	protected.HandleFunc("/sims/{iccid}/quota/{type}", h.HandleGetQuota).Methods("GET")
	protected.HandleFunc("/sims/{iccid}/quota/{type}/topup", h.HandleTopup).Methods("POST")
	protected.HandleFunc("/sims/{iccid}/sms", h.HandleSendSMS).Methods("POST")
	protected.HandleFunc("/sims/{iccid}/events", h.HandleGetEvents).Methods("GET")

	protected.HandleFunc("/scheduler/jobs", h.HandleSchedulerJobs).Methods("GET")
	protected.HandleFunc("/scheduler/jobs/{id}/run", h.HandleRunJob).Methods("POST")
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
