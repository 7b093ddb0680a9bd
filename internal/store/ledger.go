package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type LedgerStore struct {
	db DBTX
}

func NewLedgerStore(db DBTX) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanLedgerEntry(sc scanner) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var orderID, description sql.NullString

	err := sc.Scan(&e.ID, &e.ProfileID, &orderID, &e.Amount, &e.EntryType, &description, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.OrderID = stringPtr(orderID)
	e.Description = stringPtr(description)
	return &e, nil
}

const ledgerCols = `id, profile_id, order_id, amount, entry_type, description, created_at`

// Record inserts an entry. At most one entry of each type exists per order;
// a repeat for the same order returns (nil, nil) and writes nothing.
func (s *LedgerStore) Record(profileID string, orderID *string, amount int64, entryType, description string) (*model.LedgerEntry, error) {
	id := newID()
	result, err := s.db.Exec(
		`INSERT INTO ledger_entries (id, profile_id, order_id, amount, entry_type, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, entry_type) DO NOTHING`,
		id, profileID, nullString(orderID), amount, entryType, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	row := s.db.QueryRow(`SELECT `+ledgerCols+` FROM ledger_entries WHERE id = ?`, id)
	return scanLedgerEntry(row)
}

func (s *LedgerStore) ListByProfile(profileID string) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM ledger_entries WHERE profile_id = ? ORDER BY created_at DESC, rowid DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) ListByOrder(orderID string) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM ledger_entries WHERE order_id = ? ORDER BY created_at ASC, rowid ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by order: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Balance computes credits minus debits for the profile.
func (s *LedgerStore) Balance(profileID string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE profile_id = ?`,
		profileID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum ledger balance: %w", err)
	}
	return balance, nil
}

// SalesSummary returns the number and total of order credits for a seller.
func (s *LedgerStore) SalesSummary(profileID string) (count int, total int64, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE profile_id = ? AND entry_type = 'credit' AND order_id IS NOT NULL`,
		profileID,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("sum sales: %w", err)
	}
	return count, total, nil
}
