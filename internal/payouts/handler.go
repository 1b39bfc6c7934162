package payouts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// Handler manages vendor payout endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payout routes under /vendors/{id}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/payouts/generate", h.generate)
	r.Get("/{id}/payouts", h.list)
	r.Get("/{id}/payouts/{payoutID}", h.show)
}

// PayoutResponse is the JSON shape of a payout record.
type PayoutResponse struct {
	ID               int64     `json:"id"`
	VendorID         int64     `json:"vendor_id"`
	Reference        string    `json:"reference"`
	GrossSales       float64   `json:"gross_sales"`
	CommissionRate   float64   `json:"commission_rate"`
	CommissionAmount float64   `json:"commission_amount"`
	PayableAmount    float64   `json:"payable_amount"`
	CreatedAt        time.Time `json:"created_at"`
}

func toPayoutResponse(p VendorPayout) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID,
		VendorID:         p.VendorID,
		Reference:        p.Reference,
		GrossSales:       p.GrossSales,
		CommissionRate:   p.CommissionRate,
		CommissionAmount: p.CommissionAmount,
		PayableAmount:    p.PayableAmount,
		CreatedAt:        p.CreatedAt,
	}
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor id")
		return
	}
	payout, err := h.service.GeneratePayout(r.Context(), vendorID, httpx.ActorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPayoutResponse(payout))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor id")
		return
	}
	payouts, err := h.service.List(r.Context(), vendorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, toPayoutResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor id")
		return
	}
	payoutID, err := strconv.ParseInt(chi.URLParam(r, "payoutID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payout id")
		return
	}
	payout, err := h.service.Get(r.Context(), vendorID, payoutID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayoutResponse(payout))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vendors.ErrVendorNotFound), errors.Is(err, ErrPayoutNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, vendors.ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("payout request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}
