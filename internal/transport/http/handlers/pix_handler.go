package handlers

import (
	"errors"
	"net/http"

	pixsvc "github.com/xulioguimaraes/sportstips/internal/services/pix"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/dto"
	httperrors "github.com/xulioguimaraes/sportstips/internal/transport/http/errors"
)

type PixHandler struct {
	pix *pixsvc.Service
}

func NewPixHandler(pix *pixsvc.Service) *PixHandler {
	return &PixHandler{pix: pix}
}

func (h *PixHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if h.pix == nil {
		writeInternal(w, "PIX_SERVICE_UNAVAILABLE", "pix service is unavailable")
		return
	}

	var req dto.PixChargeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.pix.CreateCharge(r.Context(), pixsvc.CreateChargeInput{
		PlanID:     req.PlanID,
		PayerEmail: req.UserEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, pixsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "planId and userId are required")
		case errors.Is(err, pixsvc.ErrPlanNotFound):
			writeNotFound(w, "PLAN_NOT_FOUND", "plan not found")
		case errors.Is(err, pixsvc.ErrGateway):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "GATEWAY_ERROR",
				Message: "payment gateway rejected the charge",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create pix charge")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PixChargeResponse{
		Success:        true,
		ID:             result.PixKeyID,
		EncodedImage:   result.EncodedImage,
		Payload:        result.Payload,
		ExpirationDate: result.ExpiresAt,
		TransactionID:  result.TransactionID,
		PlanID:         result.Plan.ID,
		PlanName:       result.Plan.Name,
		PlanPrice:      result.Plan.Price,
	})
}
