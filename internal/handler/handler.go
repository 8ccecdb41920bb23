package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coopfin/loan-service/internal/integrations/banrep"
	"github.com/coopfin/loan-service/internal/middleware"
	"github.com/coopfin/loan-service/internal/models"
	"github.com/coopfin/loan-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc  *service.Service
	feed *banrep.Client
}

func NewHandler(svc *service.Service, feed *banrep.Client) *Handler {
	return &Handler{svc: svc, feed: feed}
}

type requestLoanRequest struct {
	MemberID    int64           `json:"member_id"`
	MemberEmail string          `json:"member_email"`
	Principal   decimal.Decimal `json:"principal"`
	TermMonths  int             `json:"term_months"`
	RateID      int64           `json:"rate_id"`
	Notes       string          `json:"notes"`
}

// RequestLoan handles loan creation in SOLICITADO status
func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req requestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	loan, err := h.svc.RequestLoan(r.Context(), req.MemberID, req.MemberEmail,
		req.Principal, req.TermMonths, req.RateID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

type reviewRequest struct {
	Comments         string `json:"comments"`
	DisbursementDate string `json:"disbursement_date,omitempty"` // YYYY-MM-DD, defaults to today
}

type loanResponse struct {
	Loan         *models.Loan         `json:"loan"`
	Installments []models.Installment `json:"installments,omitempty"`
}

// ApproveLoan handles loan approval and schedule generation
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid loan id", http.StatusBadRequest)
		return
	}
	reviewerID, err := middleware.UserID(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var disbursement time.Time
	if req.DisbursementDate != "" {
		disbursement, err = time.Parse("2006-01-02", req.DisbursementDate)
		if err != nil {
			http.Error(w, "Invalid disbursement_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	loan, installments, err := h.svc.ApproveLoan(r.Context(), loanID, reviewerID, req.Comments, disbursement)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loanResponse{Loan: loan, Installments: installments})
}

// RejectLoan handles loan rejection
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid loan id", http.StatusBadRequest)
		return
	}
	reviewerID, err := middleware.UserID(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	loan, err := h.svc.RejectLoan(r.Context(), loanID, reviewerID, req.Comments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loanResponse{Loan: loan})
}

// GetLoan returns a loan with its installment schedule
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid loan id", http.StatusBadRequest)
		return
	}

	loan, installments, err := h.svc.GetLoan(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loanResponse{Loan: loan, Installments: installments})
}

type paymentRequest struct {
	PaymentDate       string          `json:"payment_date,omitempty"` // YYYY-MM-DD, defaults to today
	PaymentMethodID   int64           `json:"payment_method_id"`
	ExtraPrincipal    decimal.Decimal `json:"extra_principal"`
	IncludeArrears    *bool           `json:"include_arrears,omitempty"`
	IncludeProtection *bool           `json:"include_protection,omitempty"`
}

// ApplyPayment settles an installment
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid installment id", http.StatusBadRequest)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			http.Error(w, "Invalid payment_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	opts := service.DefaultPaymentOptions()
	opts.ExtraPrincipal = req.ExtraPrincipal
	if req.IncludeArrears != nil {
		opts.IncludeArrears = *req.IncludeArrears
	}
	if req.IncludeProtection != nil {
		opts.IncludeProtection = *req.IncludeProtection
	}

	payment, err := h.svc.ApplyPayment(r.Context(), installmentID, paymentDate, req.PaymentMethodID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type createRateRequest struct {
	Year        int             `json:"year"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
}

// CreateRate registers the yearly lending rate
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req createRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rate, err := h.svc.CreateRate(req.Year, req.MonthlyRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

// RateForYear returns the registered rate for a calendar year
func (h *Handler) RateForYear(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}

	rate, err := h.svc.RateForYear(year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// SuggestedRate proposes a monthly rate for a year from the central bank feed
func (h *Handler) SuggestedRate(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}

	suggested, err := h.feed.SuggestedMonthlyRate(year)
	if err != nil {
		http.Error(w, "Failed to fetch reference rate", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":         year,
		"monthly_rate": suggested,
	})
}

// RunSweep triggers the overdue sweep manually
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunOverdueSweep(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func pathYear(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["year"])
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *service.ValidationError
		precondition *service.PreconditionError
		notFound     *service.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		http.Error(w, validation.Msg, http.StatusBadRequest)
	case errors.As(err, &precondition):
		http.Error(w, precondition.Msg, http.StatusConflict)
	case errors.As(err, &notFound):
		http.Error(w, notFound.Msg, http.StatusNotFound)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
