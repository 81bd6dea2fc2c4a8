package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
)

func (h *handler) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.Contacts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err, "Failed to list contacts")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *handler) syncContacts(w http.ResponseWriter, r *http.Request) {
	source, err := crm.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	contacts, err := h.svc.Sync(r.Context(), userID(r), source)
	if err != nil {
		writeError(w, r, err, "Failed to fetch contacts from CRM")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *handler) getContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Contact(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err, "Failed to get contact")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) collectData(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CollectData(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err, "Failed to collect data")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type recommendationsRequest struct {
	Model string `json:"model"`
}

type recommendationsResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

func (h *handler) generateRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	var req recommendationsRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	recs, err := h.svc.GenerateRecommendations(r.Context(), userID(r), id, req.Model)
	if err != nil {
		writeError(w, r, err, "Failed to generate recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err, "Failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var in model.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid settings data")
		return
	}
	s, err := h.svc.SaveSettings(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err, "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) getKeys(w http.ResponseWriter, r *http.Request) {
	ks, err := h.svc.Keys(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err, "Failed to get API keys")
		return
	}
	writeJSON(w, http.StatusOK, ks)
}

func (h *handler) saveKeys(w http.ResponseWriter, r *http.Request) {
	var in model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid API keys data")
		return
	}
	ks, err := h.svc.SaveKeys(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err, "Failed to save API keys")
		return
	}
	writeJSON(w, http.StatusOK, ks)
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid contact id")
		return 0, false
	}
	return id, true
}

// decodeOptional decodes a JSON body if one was sent.
func decodeOptional(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeMessage(w, http.StatusBadRequest, "invalid request body")
	return false
}

type errorResponse struct {
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto status codes. Typed errors carry a
// user-readable message; anything else is logged and replaced by fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		cfgErr   *model.ConfigurationError
		notFound *model.NotFoundError
		busy     *model.RunInProgressError
		parseErr *model.ExtractionParseError
	)
	switch {
	case errors.As(err, &cfgErr):
		writeMessage(w, http.StatusBadRequest, cfgErr.Reason)
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &busy):
		writeMessage(w, http.StatusConflict, busy.Error())
	case errors.As(err, &parseErr):
		zap.L().Error("api: malformed model output", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, fallback+": the model returned malformed output")
	default:
		zap.L().Error("api: request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
