package handlers

import (
	"errors"
	"net/http"
	"time"

	entsvc "github.com/xulioguimaraes/sportstips/internal/services/entitlements"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/dto"
	httperrors "github.com/xulioguimaraes/sportstips/internal/transport/http/errors"
)

type PurchaseHandler struct {
	entitlements *entsvc.Service
}

func NewPurchaseHandler(entitlements *entsvc.Service) *PurchaseHandler {
	return &PurchaseHandler{entitlements: entitlements}
}

func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	var req dto.TipPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.entitlements.PurchaseTip(r.Context(), req.UserEmail, req.TipID)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "userId and tipId are required")
		case errors.Is(err, entsvc.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, entsvc.ErrNoCredit):
			httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
				Code:    "NO_CREDIT",
				Message: "no tip credits available, buy a package first",
			})
		case errors.Is(err, entsvc.ErrAlreadyPurchased):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "ALREADY_PURCHASED",
				Message: "tip already purchased",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to purchase tip")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TipPurchaseResponse{
		Success:    true,
		Message:    "tip unlocked",
		PurchaseID: result.PurchaseID,
		PackageUsed: dto.PackageUsed{
			ID:            result.PackageUsed.ID,
			PlanID:        result.PackageUsed.PlanID,
			Name:          result.PackageUsed.Name,
			TipsRemaining: result.PackageUsed.TipsRemaining,
		},
	})
}

func (h *PurchaseHandler) Purchased(w http.ResponseWriter, r *http.Request) {
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	userEmail := r.URL.Query().Get("userId")
	items, err := h.entitlements.ListPurchased(r.Context(), userEmail)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "userId query parameter is required")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load purchased tips")
		}
		return
	}

	tips := make([]dto.PurchasedTip, 0, len(items))
	for _, item := range items {
		tips = append(tips, dto.PurchasedTip{
			Tip:           tipToResponse(item.Tip, false),
			PurchasedAt:   item.PurchasedAt.UTC().Format(time.RFC3339),
			PricePaid:     item.PricePaid,
			PackageName:   item.PackageName,
			TransactionID: item.TransactionID,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.PurchasedTipsResponse{Success: true, Tips: tips, Total: len(tips)})
}

func (h *PurchaseHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	userEmail := r.URL.Query().Get("userId")
	balance, err := h.entitlements.GetBalance(r.Context(), userEmail)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "userId query parameter is required")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load balance")
		}
		return
	}

	packages := make([]dto.BalancePackage, 0, len(balance.Packages))
	for _, pkg := range balance.Packages {
		packages = append(packages, dto.BalancePackage{
			ID:            pkg.ID,
			PlanID:        pkg.PlanID,
			Name:          pkg.Name,
			TipsIncluded:  pkg.TipsIncluded,
			TipsRemaining: pkg.TipsRemaining,
			PurchasedAt:   pkg.PurchasedAt.UTC().Format(time.RFC3339),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.BalanceResponse{
		Success:       true,
		TipsRemaining: balance.TipsRemaining,
		Packages:      packages,
	})
}
