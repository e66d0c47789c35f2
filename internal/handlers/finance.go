package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"walipheros/internal/format"
	"walipheros/internal/ledger"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, ledger.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, ledger.ErrInvalidDescription):
		respondError(w, http.StatusBadRequest, "missing_description")
	case errors.Is(err, ledger.ErrUnknownAccount):
		respondError(w, http.StatusBadRequest, "unknown_account")
	case errors.Is(err, ledger.ErrMissingDueDate), errors.Is(err, ledger.ErrInvalidDueDate):
		respondError(w, http.StatusBadRequest, "invalid_due_date")
	case errors.Is(err, ledger.ErrOverpayment):
		respondError(w, http.StatusBadRequest, "overpayment")
	case errors.Is(err, ledger.ErrInvalidLimit):
		respondError(w, http.StatusBadRequest, "invalid_limit")
	case errors.Is(err, ledger.ErrBillNotFound):
		respondError(w, http.StatusNotFound, "bill_not_found")
	case errors.Is(err, ledger.ErrNotConfirmed):
		respondError(w, http.StatusBadRequest, "confirmation_required")
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}

// GetFinance returns the balance summary, pending bills and recent history
// the finance panel renders.
func (h *Handler) GetFinance(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	// Snapshot, not View: the finance record holds slices, and encoding them
	// after the lock drops would alias live backing arrays.
	finance := session.Store.Snapshot().Finance
	recent := session.Engine.RecentHistory(10)
	totalPending := decimal.Zero
	for _, bill := range finance.PendingExpenses {
		totalPending = totalPending.Add(bill.Amount)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cash":             finance.Cash,
		"debit":            finance.Debit,
		"total":            finance.Cash.Add(finance.Debit),
		"credit_limit":     finance.CreditLimit,
		"credit_debt":      finance.CreditDebt,
		"credit_available": finance.CreditAvailable(),
		"pending":          finance.PendingExpenses,
		"pending_total":    totalPending,
		"recent_history":   recent,
		"display": map[string]string{
			"cash":  format.Currency(finance.Cash),
			"debit": format.Currency(finance.Debit),
			"total": format.Currency(finance.Cash.Add(finance.Debit)),
		},
	})
}

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"desc"`
	Account     string          `json:"account"`
	Source      string          `json:"source"`
}

func (h *Handler) RecordIncome(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.RecordIncome(r.Context(), req.Amount, req.Description, req.Account); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.RecordExpense(r.Context(), req.Amount, req.Description, req.Account); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.Transfer(r.Context(), req.Amount, req.Source); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *Handler) PayCreditDebt(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.PayCreditDebt(r.Context(), req.Amount, req.Description, req.Source); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

type creditLimitRequest struct {
	Limit decimal.Decimal `json:"limit"`
}

func (h *Handler) SetCreditLimit(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req creditLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.SetCreditLimit(r.Context(), req.Limit); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type addBillRequest struct {
	Description string          `json:"desc"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"dueDate"`
}

func (h *Handler) AddPendingBill(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req addBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.AddPendingBill(r.Context(), req.Description, req.Amount, req.DueDate); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) PayPendingBill(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bill index")
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := session.Engine.PayPendingBill(r.Context(), index, req.Amount, req.Source); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) MonthRollover(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ctx := ledger.WithConfirmation(r.Context(), req.Confirm)
	if err := session.Engine.MonthRollover(ctx); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rolled_over"})
}

func (h *Handler) WipeFinance(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ctx := ledger.WithConfirmation(r.Context(), req.Confirm)
	if err := session.Engine.WipeAll(ctx); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "wiped"})
}
