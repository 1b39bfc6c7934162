package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/vendors"
)

// Handler exposes vendor fee invoices and the manual billing trigger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountVendorRoutes registers invoice endpoints under the vendors router.
func (h *Handler) MountVendorRoutes(r chi.Router) {
	r.Get("/{id}/invoices", h.listInvoices)
	r.Post("/{id}/invoices/{invoiceID}/pay", h.markPaid)
	r.Post("/{id}/invoices/{invoiceID}/void", h.voidInvoice)
	r.Post("/{id}/reactivate", h.reactivate)
}

// MountRoutes registers the billing pass trigger.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/run", h.runDaily)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.pathID(w, r, "id", "invalid vendor id")
	if !ok {
		return
	}
	list, err := h.service.ListVendorInvoices(r.Context(), vendorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.pathID(w, r, "id", "invalid vendor id")
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(w, r, "invoiceID", "invalid invoice id")
	if !ok {
		return
	}
	inv, err := h.service.MarkPaid(r.Context(), vendorID, invoiceID, httpx.ActorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.pathID(w, r, "id", "invalid vendor id")
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(w, r, "invoiceID", "invalid invoice id")
	if !ok {
		return
	}
	var req VoidInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.VoidInvoice(r.Context(), vendorID, invoiceID, httpx.ActorID(r), req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.pathID(w, r, "id", "invalid vendor id")
	if !ok {
		return
	}
	var req ReactivateRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	if err := h.service.ReactivateVendorAccount(r.Context(), vendorID, httpx.ActorID(r), req.BillingStartDate); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reactivated"})
}

func (h *Handler) runDaily(w http.ResponseWriter, r *http.Request) {
	var req RunBillingRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
			return
		}
	}
	runDate := h.service.now()
	if req.RunDate != nil {
		runDate = *req.RunDate
	}
	summary, err := h.service.ProcessDailyVendorBilling(r.Context(), runDate)
	if err != nil {
		h.logger.Error("billing pass failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, toRunSummaryResponse(summary))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", msg)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, vendors.ErrVendorNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyTerminal):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrDuplicateInvoice):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("billing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}
