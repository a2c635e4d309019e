package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	paymentsvc "github.com/xulioguimaraes/sportstips/internal/services/payments"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/dto"
	httperrors "github.com/xulioguimaraes/sportstips/internal/transport/http/errors"
)

type WebhookHandler struct {
	payments *paymentsvc.Service
}

func NewWebhookHandler(payments *paymentsvc.Service) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Ping answers the gateway's webhook availability probe.
func (h *WebhookHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "webhook endpoint active"})
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	// Asaas sends far more fields than we read, so decoding is lenient and
	// the raw body is kept for the ledger audit column.
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid webhook body")
		return
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid webhook body")
		return
	}
	var payload map[string]any
	_ = json.Unmarshal(raw, &payload)

	result, err := h.payments.HandleEvent(r.Context(), paymentsvc.WebhookInput{
		Event:       req.Event,
		PaymentID:   req.Payment.ID,
		PixQrCodeID: req.Payment.PixQrCodeID,
		Payload:     payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrMalformedEvent):
			writeBadRequest(w, "VALIDATION_ERROR", "webhook event is missing pixQrCodeId")
		case errors.Is(err, paymentsvc.ErrTransactionNotFound):
			writeNotFound(w, "TRANSACTION_NOT_FOUND", "no transaction matches this pix key")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process webhook")
		}
		return
	}

	results := make([]dto.WebhookTransactionResult, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		results = append(results, dto.WebhookTransactionResult{
			TransactionID: tx.TransactionID,
			UserEmail:     tx.UserEmail,
			PlanID:        tx.PlanID,
			UserUpdated:   tx.UserUpdated,
			Credited:      tx.Credited,
			Detail:        tx.Detail,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{
		Success:             true,
		Message:             result.Message,
		PixKeyID:            result.PixKeyID,
		UpdatedTransactions: len(results),
		Results:             results,
	})
}
