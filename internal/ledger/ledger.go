// Package ledger implements the finance engine: every balance-affecting
// operation validates its input fully, then mutates balances and the history
// log in one state transaction, then persists. Validation failures surface a
// human-readable message through the alert collaborator and leave the state
// untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walipheros/internal/format"
	"walipheros/internal/metrics"
	"walipheros/internal/models"
	"walipheros/internal/state"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDescription = errors.New("missing description")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrMissingDueDate     = errors.New("missing due date")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrBillNotFound       = errors.New("pending bill not found")
	ErrOverpayment        = errors.New("payment exceeds remaining amount")
	ErrInvalidLimit       = errors.New("invalid credit limit")
	ErrNotConfirmed       = errors.New("not confirmed")
)

// Epsilon absorbs currency-rounding noise: payments within it of the
// remaining amount count as full, and a bill at or below it is settled.
var Epsilon = decimal.New(1, -1)

// Alerter is the fire-and-forget alert surface shown on validation failures.
type Alerter interface {
	Alert(title, message string)
}

// Interactor asks the user a yes/no question; destructive flags irreversible
// actions. The response arrives via the returned value, never by blocking UI.
type Interactor interface {
	Confirm(ctx context.Context, title, message string, destructive bool) (bool, error)
}

type Engine struct {
	store    *state.Store
	alerts   Alerter
	interact Interactor
	now      func() time.Time
	log      zerolog.Logger
}

func NewEngine(store *state.Store, alerts Alerter, interact Interactor, now func() time.Time, log zerolog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		alerts:   alerts,
		interact: interact,
		now:      now,
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// RecordIncome credits an account (or pays down credit debt, floored at zero)
// and appends an income history entry. An empty description gets the default
// label the dashboard always used.
func (e *Engine) RecordIncome(ctx context.Context, amount decimal.Decimal, description, account string) error {
	op := "record_income"
	if !amount.IsPositive() {
		return e.reject(op, "Error", "Monto inválido.", ErrInvalidAmount)
	}
	if description == "" {
		description = "Ingreso / Abono"
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		f := &st.Finance
		switch account {
		case models.AccountCash:
			f.Cash = f.Cash.Add(amount)
		case models.AccountDebit:
			f.Debit = f.Debit.Add(amount)
		case models.AccountCredit:
			f.CreditDebt = floorZero(f.CreditDebt.Sub(amount))
		default:
			return ErrUnknownAccount
		}
		f.History = append(f.History, models.HistoryEntry{
			Description: description,
			Amount:      amount,
			Kind:        models.KindIncome,
			Account:     account,
			Date:        format.DisplayDate(e.now()),
		})
		return nil
	})
	if errors.Is(err, ErrUnknownAccount) {
		return e.reject(op, "Error", "Cuenta desconocida.", err)
	}
	return e.done(op, err)
}

// RecordExpense debits an account (or grows credit debt) and appends an
// expense history entry. Direct expenses carry no balance check; cash and
// debit are allowed to go negative here.
func (e *Engine) RecordExpense(ctx context.Context, amount decimal.Decimal, description, account string) error {
	op := "record_expense"
	if description == "" {
		return e.reject(op, "Error", "Datos inválidos.", ErrInvalidDescription)
	}
	if !amount.IsPositive() {
		return e.reject(op, "Error", "Datos inválidos.", ErrInvalidAmount)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		f := &st.Finance
		switch account {
		case models.AccountCash:
			f.Cash = f.Cash.Sub(amount)
		case models.AccountDebit:
			f.Debit = f.Debit.Sub(amount)
		case models.AccountCredit:
			f.CreditDebt = f.CreditDebt.Add(amount)
		default:
			return ErrUnknownAccount
		}
		f.History = append(f.History, models.HistoryEntry{
			Description: description,
			Amount:      amount,
			Kind:        models.KindExpense,
			Account:     account,
			Date:        format.DisplayDate(e.now()),
		})
		return nil
	})
	if errors.Is(err, ErrUnknownAccount) {
		return e.reject(op, "Error", "Cuenta desconocida.", err)
	}
	return e.done(op, err)
}

// Transfer moves funds between cash and debit. Source must cover the amount;
// the history entry is tagged as a mixed-account transfer.
func (e *Engine) Transfer(ctx context.Context, amount decimal.Decimal, source string) error {
	op := "transfer"
	if !amount.IsPositive() {
		return e.reject(op, "Error", "Monto inválido.", ErrInvalidAmount)
	}
	if source != models.AccountCash && source != models.AccountDebit {
		return e.reject(op, "Error", "Cuenta desconocida.", ErrUnknownAccount)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		f := &st.Finance
		if source == models.AccountCash {
			if f.Cash.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Cash = f.Cash.Sub(amount)
			f.Debit = f.Debit.Add(amount)
		} else {
			if f.Debit.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Debit = f.Debit.Sub(amount)
			f.Cash = f.Cash.Add(amount)
		}
		tag := "db"
		if source == models.AccountCash {
			tag = "fx"
		}
		f.History = append(f.History, models.HistoryEntry{
			Description: fmt.Sprintf("Transferencia (%s)", tag),
			Amount:      amount,
			Kind:        models.KindTransfer,
			Account:     models.AccountMixed,
			Date:        format.DisplayDate(e.now()),
		})
		return nil
	})
	if errors.Is(err, ErrInsufficientFunds) {
		if source == models.AccountCash {
			return e.reject(op, "Fondos Insuficientes", "No tienes suficiente efectivo.", err)
		}
		return e.reject(op, "Fondos Insuficientes", "No tienes suficiente en débito.", err)
	}
	return e.done(op, err)
}

// PayCreditDebt moves funds from cash or debit onto the credit line, flooring
// the debt at zero.
func (e *Engine) PayCreditDebt(ctx context.Context, amount decimal.Decimal, description, source string) error {
	op := "pay_credit_debt"
	if description == "" || !amount.IsPositive() {
		return e.reject(op, "Error", "Datos inválidos.", errForInput(description, amount))
	}
	if source != models.AccountCash && source != models.AccountDebit {
		return e.reject(op, "Error", "Cuenta desconocida.", ErrUnknownAccount)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		f := &st.Finance
		if source == models.AccountCash {
			if f.Cash.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Cash = f.Cash.Sub(amount)
		} else {
			if f.Debit.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Debit = f.Debit.Sub(amount)
		}
		f.CreditDebt = floorZero(f.CreditDebt.Sub(amount))
		f.History = append(f.History, models.HistoryEntry{
			Description: "Pago Deuda: " + description,
			Amount:      amount,
			Kind:        models.KindExpense,
			Account:     source,
			Category:    "credit_payment",
			Date:        format.DisplayDate(e.now()),
		})
		return nil
	})
	if errors.Is(err, ErrInsufficientFunds) {
		if source == models.AccountCash {
			return e.reject(op, "Fondos Insuficientes", "Insuficiente efectivo.", err)
		}
		return e.reject(op, "Fondos Insuficientes", "Insuficiente débito.", err)
	}
	return e.done(op, err)
}

// AddPendingBill registers a bill awaiting payment. DueDate is a calendar
// date in YYYY-MM-DD form.
func (e *Engine) AddPendingBill(ctx context.Context, description string, amount decimal.Decimal, dueDate string) error {
	op := "add_pending_bill"
	if description == "" || !amount.IsPositive() {
		return e.reject(op, "Datos Incompletos", "Ingresa descripción y monto.", errForInput(description, amount))
	}
	if dueDate == "" {
		return e.reject(op, "Falta Fecha", "Por favor selecciona una fecha de vencimiento.", ErrMissingDueDate)
	}
	if _, err := time.Parse("2006-01-02", dueDate); err != nil {
		return e.reject(op, "Falta Fecha", "Fecha de vencimiento inválida.", ErrInvalidDueDate)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		st.Finance.PendingExpenses = append(st.Finance.PendingExpenses, models.PendingBill{
			Description: description,
			Amount:      amount,
			DueDate:     dueDate,
			CreatedDate: format.DisplayDate(e.now()),
		})
		return nil
	})
	return e.done(op, err)
}

// PayPendingBill pays part or all of the bill at index. Paying from credit
// skips the balance check and grows the debt instead. A payment within
// Epsilon of the remaining amount settles the bill and removes it; anything
// clearly below tags the history entry as partial.
func (e *Engine) PayPendingBill(ctx context.Context, index int, amount decimal.Decimal, source string) error {
	op := "pay_pending_bill"
	if !amount.IsPositive() {
		return e.reject(op, "Error", "Monto inválido.", ErrInvalidAmount)
	}
	switch source {
	case models.AccountCash, models.AccountDebit, models.AccountCredit:
	default:
		return e.reject(op, "Error", "Cuenta desconocida.", ErrUnknownAccount)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		f := &st.Finance
		if index < 0 || index >= len(f.PendingExpenses) {
			return ErrBillNotFound
		}
		bill := &f.PendingExpenses[index]
		if amount.GreaterThan(bill.Amount.Add(Epsilon)) {
			return ErrOverpayment
		}
		switch source {
		case models.AccountCash:
			if f.Cash.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Cash = f.Cash.Sub(amount)
		case models.AccountDebit:
			if f.Debit.LessThan(amount) {
				return ErrInsufficientFunds
			}
			f.Debit = f.Debit.Sub(amount)
		case models.AccountCredit:
			f.CreditDebt = f.CreditDebt.Add(amount)
		}
		description := bill.Description
		if amount.LessThan(bill.Amount.Sub(Epsilon)) {
			description += " (Parcial)"
		}
		f.History = append(f.History, models.HistoryEntry{
			Description: description,
			Amount:      amount,
			Kind:        models.KindExpense,
			Account:     source,
			Date:        format.DisplayDate(e.now()),
		})
		bill.Amount = bill.Amount.Sub(amount)
		if bill.Amount.LessThanOrEqual(Epsilon) {
			f.PendingExpenses = append(f.PendingExpenses[:index], f.PendingExpenses[index+1:]...)
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrBillNotFound):
		return e.reject(op, "Error", "La deuda seleccionada no existe.", err)
	case errors.Is(err, ErrOverpayment):
		return e.reject(op, "Error", "No puedes pagar más de lo que debes.", err)
	case errors.Is(err, ErrInsufficientFunds):
		if source == models.AccountCash {
			return e.reject(op, "Fondos Insuficientes", "No tienes suficiente efectivo para pagar esta deuda.", err)
		}
		return e.reject(op, "Fondos Insuficientes", "No tienes suficiente saldo en débito para pagar esta deuda.", err)
	}
	return e.done(op, err)
}

// SetCreditLimit replaces the credit line ceiling.
func (e *Engine) SetCreditLimit(ctx context.Context, limit decimal.Decimal) error {
	op := "set_credit_limit"
	if limit.IsNegative() {
		return e.reject(op, "Error", "Monto inválido.", ErrInvalidLimit)
	}
	err := e.store.Mutate(ctx, func(st *models.State) error {
		st.Finance.CreditLimit = limit
		return nil
	})
	if err == nil {
		e.alerts.Alert("Actualizado", "Límite de crédito modificado.")
	}
	return e.done(op, err)
}

// MonthRollover closes the month: the history log is emptied, every surviving
// pending bill is flagged as carried, balances stay untouched.
func (e *Engine) MonthRollover(ctx context.Context) error {
	op := "month_rollover"
	ok, err := e.interact.Confirm(ctx, "¿Cerrar Mes Actual?",
		"Esta acción borrará el historial reciente, mantendrá tus saldos y marcará deudas pendientes como antiguas.", false)
	if err != nil {
		return e.done(op, err)
	}
	if !ok {
		return e.done(op, ErrNotConfirmed)
	}
	err = e.store.Mutate(ctx, func(st *models.State) error {
		st.Finance.History = []models.HistoryEntry{}
		for i := range st.Finance.PendingExpenses {
			st.Finance.PendingExpenses[i].Carried = true
		}
		return nil
	})
	return e.done(op, err)
}

// WipeAll resets balances to zero and clears history and pending bills. The
// confirmation is destructive and mandatory.
func (e *Engine) WipeAll(ctx context.Context) error {
	op := "wipe_all"
	ok, err := e.interact.Confirm(ctx, "¿Borrar TODO?",
		"Se eliminarán registros, saldos e historial.", true)
	if err != nil {
		return e.done(op, err)
	}
	if !ok {
		return e.done(op, ErrNotConfirmed)
	}
	err = e.store.Mutate(ctx, func(st *models.State) error {
		st.Finance = models.FinanceData{
			History:         []models.HistoryEntry{},
			PendingExpenses: []models.PendingBill{},
		}
		return nil
	})
	if err == nil {
		e.alerts.Alert("Reinicio Completo", "Sistema financiero restablecido.")
	}
	return e.done(op, err)
}

// RecentHistory returns the most recent limit entries, newest first.
func (e *Engine) RecentHistory(limit int) []models.HistoryEntry {
	var recent []models.HistoryEntry
	e.store.View(func(st *models.State) {
		history := st.Finance.History
		for i := len(history) - 1; i >= 0 && len(recent) < limit; i-- {
			recent = append(recent, history[i])
		}
	})
	return recent
}

func (e *Engine) reject(op, title, message string, err error) error {
	metrics.LedgerOperations.WithLabelValues(op, "rejected").Inc()
	e.alerts.Alert(title, message)
	e.log.Debug().Str("operation", op).Err(err).Msg("operation rejected")
	return err
}

func (e *Engine) done(op string, err error) error {
	if err != nil {
		metrics.LedgerOperations.WithLabelValues(op, "failed").Inc()
		return err
	}
	metrics.LedgerOperations.WithLabelValues(op, "ok").Inc()
	return nil
}

func errForInput(description string, amount decimal.Decimal) error {
	if description == "" {
		return ErrInvalidDescription
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func floorZero(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
