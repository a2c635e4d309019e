package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
	entsvc "github.com/xulioguimaraes/sportstips/internal/services/entitlements"
	tipsvc "github.com/xulioguimaraes/sportstips/internal/services/tips"
	"github.com/xulioguimaraes/sportstips/internal/transport/http/dto"
	httperrors "github.com/xulioguimaraes/sportstips/internal/transport/http/errors"
)

type TipsHandler struct {
	tips         *tipsvc.Service
	entitlements *entsvc.Service
}

func NewTipsHandler(tips *tipsvc.Service, entitlements *entsvc.Service) *TipsHandler {
	return &TipsHandler{tips: tips, entitlements: entitlements}
}

// List returns the tips for one day. Premium tips the caller has not purchased
// come back locked with the paid fields blanked.
func (h *TipsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.tips == nil {
		writeInternal(w, "TIPS_SERVICE_UNAVAILABLE", "tips service is unavailable")
		return
	}

	date := r.URL.Query().Get("date")
	userEmail := r.URL.Query().Get("userId")

	records, err := h.tips.ListByDate(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, tipsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "date must be YYYY-MM-DD")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to list tips")
		}
		return
	}

	responses := make([]dto.TipResponse, 0, len(records))
	var listedDate string
	for _, record := range records {
		listedDate = record.MatchDate
		responses = append(responses, tipToResponse(record, h.isLocked(r, record, userEmail)))
	}
	if listedDate == "" {
		listedDate, _ = tipsvc.NormalizeDate(date)
	}

	httperrors.Write(w, http.StatusOK, dto.TipListResponse{
		Success: true,
		Date:    listedDate,
		Tips:    responses,
	})
}

// Get is the access-check endpoint for one tip. Premium tips the caller may
// not see return 403 with hasAccess false; an unknown user is a 404.
func (h *TipsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.tips == nil || h.entitlements == nil {
		writeInternal(w, "TIPS_SERVICE_UNAVAILABLE", "tips service is unavailable")
		return
	}

	tipID := chi.URLParam(r, "id")
	userEmail := r.URL.Query().Get("userId")

	record, err := h.tips.GetByID(r.Context(), tipID)
	if err != nil {
		switch {
		case errors.Is(err, tipsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "tip id is required")
		case errors.Is(err, tipsvc.ErrTipNotFound):
			writeNotFound(w, "TIP_NOT_FOUND", "tip not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load tip")
		}
		return
	}

	access, err := h.entitlements.CheckAccess(r.Context(), userEmail, record.ID)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		case errors.Is(err, entsvc.ErrTipNotFound):
			writeNotFound(w, "TIP_NOT_FOUND", "tip not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to check tip access")
		}
		return
	}

	if !access.Allowed {
		httperrors.Write(w, http.StatusForbidden, dto.TipAccessResponse{
			Success:   false,
			Tip:       tipToResponse(record, true),
			HasAccess: false,
			Reason:    access.Reason,
		})
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TipAccessResponse{
		Success:   true,
		Tip:       tipToResponse(record, false),
		HasAccess: true,
		Reason:    access.Reason,
	})
}

func (h *TipsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.tips == nil {
		writeInternal(w, "TIPS_SERVICE_UNAVAILABLE", "tips service is unavailable")
		return
	}

	var req dto.TipCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	record, err := h.tips.Create(r.Context(), tipsvc.CreateInput{
		Category:    req.Category,
		League:      req.League,
		Teams:       req.Teams,
		MatchDate:   req.MatchDate,
		MatchTime:   req.MatchTime,
		Prediction:  req.Prediction,
		Confidence:  req.Confidence,
		IsPremium:   req.IsPremium,
		Description: req.Description,
		Odds:        oddsFromDTO(req.Odds),
	})
	if err != nil {
		switch {
		case errors.Is(err, tipsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid tip payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create tip")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.TipItemResponse{
		Success: true,
		Tip:     tipToResponse(record, false),
	})
}

func (h *TipsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.tips == nil {
		writeInternal(w, "TIPS_SERVICE_UNAVAILABLE", "tips service is unavailable")
		return
	}

	var req dto.TipUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	record, err := h.tips.Update(r.Context(), req.ID, tipsvc.UpdateInput{
		Category:    req.Category,
		League:      req.League,
		Teams:       req.Teams,
		MatchDate:   req.MatchDate,
		MatchTime:   req.MatchTime,
		Prediction:  req.Prediction,
		Confidence:  req.Confidence,
		IsPremium:   req.IsPremium,
		Description: req.Description,
		Odds:        oddsFromDTO(req.Odds),
		Status:      req.Status,
		Result:      req.Result,
	})
	if err != nil {
		switch {
		case errors.Is(err, tipsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid tip payload")
		case errors.Is(err, tipsvc.ErrTipNotFound):
			writeNotFound(w, "TIP_NOT_FOUND", "tip not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update tip")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TipItemResponse{
		Success: true,
		Tip:     tipToResponse(record, false),
	})
}

// isLocked asks the access gate whether the paid fields should be hidden.
// Gate failures fail closed for premium tips.
func (h *TipsHandler) isLocked(r *http.Request, record pgrepo.TipRecord, userEmail string) bool {
	if !record.IsPremium {
		return false
	}
	if h.entitlements == nil {
		return true
	}

	access, err := h.entitlements.CheckAccess(r.Context(), userEmail, record.ID)
	if err != nil {
		return true
	}
	return !access.Allowed
}

func tipToResponse(record pgrepo.TipRecord, locked bool) dto.TipResponse {
	resp := dto.TipResponse{
		ID:         record.ID,
		Category:   record.Category,
		League:     record.League,
		Teams:      record.Teams,
		MatchDate:  record.MatchDate,
		MatchTime:  record.MatchTime,
		Confidence: record.Confidence,
		IsPremium:  record.IsPremium,
		Locked:     locked,
		Status:     record.Status,
		Result:     record.Result,
	}
	if !locked {
		resp.Prediction = record.Prediction
		resp.Description = record.Description
		resp.Odds = oddsToDTO(record.Odds)
	}
	return resp
}

func oddsFromDTO(odds []dto.TipOdd) []pgrepo.TipOdd {
	if odds == nil {
		return nil
	}
	out := make([]pgrepo.TipOdd, 0, len(odds))
	for _, odd := range odds {
		out = append(out, pgrepo.TipOdd{House: odd.House, Value: odd.Value, IsBest: odd.IsBest})
	}
	return out
}

func oddsToDTO(odds []pgrepo.TipOdd) []dto.TipOdd {
	if odds == nil {
		return nil
	}
	out := make([]dto.TipOdd, 0, len(odds))
	for _, odd := range odds {
		out = append(out, dto.TipOdd{House: odd.House, Value: odd.Value, IsBest: odd.IsBest})
	}
	return out
}
