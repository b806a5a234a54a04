package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"tableflow/internal/orderhub/app/services"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

type ShiftHandler struct {
	shiftService *services.ShiftService
	mylog        logger.Logger
}

func NewShiftHandler(shiftService *services.ShiftService, mylog logger.Logger) *ShiftHandler {
	return &ShiftHandler{
		shiftService: shiftService,
		mylog:        mylog,
	}
}

func shiftResponse(s models.Shift, rawQR string) dto.ShiftResponse {
	return dto.ShiftResponse{
		ShiftID:     s.ShiftID,
		QRToken:     rawQR,
		QRExpiresAt: s.QRExpiresAt,
		OpenedAt:    s.OpenedAt,
		OpenedCash:  s.OpenedCash,
	}
}

func (h *ShiftHandler) Open() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		var req dto.OpenShiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		shift, rawQR, err := h.shiftService.Open(r.Context(), actor, req.OpenedCash)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, shiftResponse(shift, rawQR))
	}
}

func (h *ShiftHandler) RefreshQR() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		shift, rawQR, err := h.shiftService.RefreshQR(r.Context(), actor)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, shiftResponse(shift, rawQR))
	}
}

func (h *ShiftHandler) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		shift, err := h.shiftService.Close(r.Context(), actor)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, shiftResponse(shift, ""))
	}
}

func (h *ShiftHandler) Current() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		shift, err := h.shiftService.Current(r.Context(), actor)
		if err != nil {
			serviceError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, shiftResponse(shift, ""))
	}
}
