package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
)

// maxBodyBytes bounds request bodies; itineraries are plain text.
const maxBodyBytes = 1 << 20

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

type replanResponse struct {
	ReplannedItinerary string `json:"replannedItinerary"`
}

type plannerHandlers struct {
	ResponseHandler ResponseHandler
	PlannerSvc      plannerService
}

func NewPlannerHandlers(deps *Deps) *plannerHandlers {
	return &plannerHandlers{
		ResponseHandler: deps.ResponseHandler,
		PlannerSvc:      deps.PlannerSvc,
	}
}

func (h *plannerHandlers) Health(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *plannerHandlers) Query(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		h.ResponseHandler.HandleError(w, r, errx.Validation("question is required"))
		return
	}

	answer, err := h.PlannerSvc.Query(r.Context(), body.Question)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, queryResponse{Answer: answer})
}

func (h *plannerHandlers) Replan(w http.ResponseWriter, r *http.Request) {
	var body model.ReplanRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if err := body.Validate(); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	itinerary, err := h.PlannerSvc.Replan(r.Context(), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, replanResponse{ReplannedItinerary: itinerary})
}

func (h *plannerHandlers) GetReplan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.PlannerSvc.LoadReplan(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "tripId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, rec)
}

func (h *plannerHandlers) AssessAlert(w http.ResponseWriter, r *http.Request) {
	var body model.AlertCheckRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	assessment, err := h.PlannerSvc.AssessAlert(r.Context(), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteJSON(w, r, http.StatusOK, assessment)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errx.Validation(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
