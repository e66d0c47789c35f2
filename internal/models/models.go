package models

import "github.com/shopspring/decimal"

// Account identifiers as stored in history entries.
const (
	AccountCash   = "cash"
	AccountDebit  = "debit"
	AccountCredit = "credit"
	AccountMixed  = "mix"
)

// History entry kinds.
const (
	KindIncome   = "inc"
	KindExpense  = "exp"
	KindTransfer = "trans"
)

// Notification categories.
const (
	CategorySystem  = "system"
	CategoryClass   = "class"
	CategoryFinance = "finance"
	CategoryTask    = "task"
)

// State is the single mutable record backing the dashboard. Both the ledger
// engine and the notification scheduler operate on it in place; the document
// store is the sole durability authority.
type State struct {
	Todos         []Todo         `json:"todos"`
	Schedule      []Subject      `json:"schedule"`
	Notes         string         `json:"notes"`
	Finance       FinanceData    `json:"finanzas"`
	Notifications []Notification `json:"notifications"`
	Links         []Link         `json:"links"`
	Preferences   Preferences    `json:"preferences"`
}

type FinanceData struct {
	Cash            decimal.Decimal `json:"cash"`
	Debit           decimal.Decimal `json:"debit"`
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	CreditDebt      decimal.Decimal `json:"creditDebt"`
	History         []HistoryEntry  `json:"history"`
	PendingExpenses []PendingBill   `json:"pendingExpenses"`
}

// CreditAvailable is the headroom left on the credit line.
func (f FinanceData) CreditAvailable() decimal.Decimal {
	return f.CreditLimit.Sub(f.CreditDebt)
}

// HistoryEntry is immutable once appended. Date is a locale-formatted display
// string, not a sortable timestamp; ordering is insertion order.
type HistoryEntry struct {
	Description string          `json:"desc"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"type"`
	Account     string          `json:"acc"`
	Category    string          `json:"category,omitempty"`
	Date        string          `json:"date"`
}

// PendingBill is a bill awaiting payment. Amount is the remaining balance and
// only ever decreases; once it falls at or below the payment epsilon the bill
// is removed from the collection. Carried marks survival of a month rollover.
type PendingBill struct {
	Description string          `json:"desc"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"dueDate"`
	CreatedDate string          `json:"createdDate"`
	Carried     bool            `json:"carried,omitempty"`
}

type Notification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"msg"`
	Category  string `json:"type"`
	Target    string `json:"target,omitempty"`
	DedupeKey string `json:"dedupeId,omitempty"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Subject is one schedule entry. Weekday follows time.Weekday numbering
// (Sunday = 0); Start and End are "HH:MM" in 24h form. NotifyBefore is the
// reminder lead time in minutes, zero meaning the default window.
type Subject struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Room         string `json:"room"`
	Weekday      int    `json:"day"`
	Start        string `json:"start"`
	End          string `json:"end"`
	NotifyBefore int    `json:"notifyBefore,omitempty"`
}

// Todo timestamps are epoch milliseconds, matching the stored documents.
type Todo struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	CreatedAt   int64  `json:"timestamp"`
	Deadline    int64  `json:"deadline"`
	DurationTag string `json:"durationTag,omitempty"`
}

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

type Preferences struct {
	Theme string `json:"theme,omitempty"`
	Name  string `json:"name,omitempty"`
}

// NewState returns a state with the same defaults the client seeds for a
// fresh user.
func NewState() State {
	return State{
		Todos:         []Todo{},
		Schedule:      []Subject{},
		Notifications: []Notification{},
		Links:         []Link{},
		Finance: FinanceData{
			History:         []HistoryEntry{},
			PendingExpenses: []PendingBill{},
		},
	}
}
