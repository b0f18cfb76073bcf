package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sdko-org/sim-fleet/internal/validate"
)

type simListResponse struct {
	Items      []models.SIM `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int64        `json:"total_pages"`
}

type createSIMRequest struct {
	ICCID    string `json:"iccid"`
	IMSI     string `json:"imsi"`
	MSISDN   string `json:"msisdn"`
	Label    string `json:"label"`
	Metadata string `json:"metadata"`
}

type updateSIMRequest struct {
	Label    string `json:"label"`
	Metadata string `json:"metadata"`
}

type topupRequest struct {
	Volume int64 `json:"volume"`
}

type sendSMSRequest struct {
	Message     string `json:"message"`
	Destination string `json:"destination"`
}

func (h *APIHandler) HandleListSIMs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 100)
	status := r.URL.Query().Get("status")

	sims, total, err := h.svc.ListSIMs(r.Context(), page, pageSize, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, simListResponse{
		Items:      sims,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *APIHandler) HandleCreateSIM(w http.ResponseWriter, r *http.Request) {
	var req createSIMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IMSI != "" && !validate.IMSI(req.IMSI) {
		writeError(w, http.StatusBadRequest, "invalid imsi format")
		return
	}
	if req.MSISDN != "" && !validate.MSISDN(req.MSISDN) {
		writeError(w, http.StatusBadRequest, "invalid msisdn format")
		return
	}

	sim := models.SIM{
		ICCID:    req.ICCID,
		IMSI:     req.IMSI,
		MSISDN:   req.MSISDN,
		Label:    req.Label,
		Metadata: req.Metadata,
	}
	if err := h.svc.CreateSIM(r.Context(), &sim); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sim)
}

func (h *APIHandler) HandleGetSIM(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	sim, err := h.svc.GetSIM(r.Context(), iccid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sim == nil {
		writeError(w, http.StatusNotFound, "sim not found: "+iccid)
		return
	}

	writeJSON(w, http.StatusOK, sim)
}

func (h *APIHandler) HandleUpdateSIM(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	var req updateSIMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sim, err := h.svc.UpdateSIM(r.Context(), iccid, req.Label, req.Metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sim == nil {
		writeError(w, http.StatusNotFound, "sim not found: "+iccid)
		return
	}

	writeJSON(w, http.StatusOK, sim)
}

func (h *APIHandler) HandleSyncSIM(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	sim, err := h.svc.SyncSIM(r.Context(), iccid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sim == nil {
		writeError(w, http.StatusNotFound, "sim not found at carrier: "+iccid)
		return
	}

	writeJSON(w, http.StatusOK, sim)
}

func (h *APIHandler) HandleSyncAllSIMs(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SyncAllSIMs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"processed": result.Processed,
		"errors":    result.Errors,
	})
}

func (h *APIHandler) HandleGetUsage(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	var usage []models.SIMUsage
	query := h.db.WithContext(r.Context()).Where("iccid = ?", iccid)
	if start := r.URL.Query().Get("start_date"); start != "" {
		query = query.Where("timestamp >= ?", start)
	}
	if end := r.URL.Query().Get("end_date"); end != "" {
		query = query.Where("timestamp <= ?", end)
	}
	if err := query.Order("timestamp DESC").Find(&usage).Error; err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

func (h *APIHandler) HandleSyncUsage(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	synced, err := h.svc.SyncUsage(r.Context(), iccid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

func (h *APIHandler) HandleGetQuota(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	quotaType := vars["type"]
	if quotaType != carrier.QuotaTypeData && quotaType != carrier.QuotaTypeSMS {
		writeError(w, http.StatusBadRequest, "quota type must be data or sms")
		return
	}

	quota, err := h.svc.SyncQuota(r.Context(), vars["iccid"], quotaType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quota)
}

func (h *APIHandler) HandleTopup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	quotaType := vars["type"]
	if quotaType != carrier.QuotaTypeData && quotaType != carrier.QuotaTypeSMS {
		writeError(w, http.StatusBadRequest, "quota type must be data or sms")
		return
	}

	var req topupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume <= 0 {
		writeError(w, http.StatusBadRequest, "volume must be a positive integer")
		return
	}

	if err := h.svc.Topup(r.Context(), vars["iccid"], quotaType, req.Volume); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "topup submitted"})
}

func (h *APIHandler) HandleSendSMS(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	var req sendSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.svc.SendSMS(r.Context(), iccid, req.Message, req.Destination); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// HandleGetEvents refreshes events from the carrier, then serves the
// local table, which holds history within the retention window.
func (h *APIHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	if _, err := h.svc.SyncEvents(r.Context(), iccid); err != nil {
		writeServiceError(w, err)
		return
	}

	var events []models.SIMEvent
	query := h.db.WithContext(r.Context()).Where("iccid = ?", iccid)
	if eventType := r.URL.Query().Get("event_type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if err := query.Order("timestamp DESC").Limit(500).Find(&events).Error; err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *APIHandler) HandleGetConnectivity(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	conn, err := h.svc.Connectivity(r.Context(), iccid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conn)
}

func (h *APIHandler) HandleResetConnectivity(w http.ResponseWriter, r *http.Request) {
	iccid := mux.Vars(r)["iccid"]

	if err := h.svc.ResetConnectivity(r.Context(), iccid); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset requested"})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}
