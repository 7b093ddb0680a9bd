package model

import "time"

const (
	EntryCredit = "credit"
	EntryDebit  = "debit"
)

type LedgerEntry struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	OrderID     *string   `json:"order_id"`
	Amount      int64     `json:"amount"`
	EntryType   string    `json:"entry_type"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
