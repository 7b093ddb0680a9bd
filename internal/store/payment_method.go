package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type PaymentMethodStore struct {
	db DBTX
}

func NewPaymentMethodStore(db DBTX) *PaymentMethodStore {
	return &PaymentMethodStore{db: db}
}

func scanPaymentMethod(sc scanner) (*model.PaymentMethod, error) {
	var m model.PaymentMethod
	var details string
	var active int

	err := sc.Scan(&m.ID, &m.Title, &details, &m.Type, &active, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Details = json.RawMessage(details)
	m.IsActive = active != 0
	return &m, nil
}

const paymentMethodCols = `id, title, details, type, is_active, created_at`

func (s *PaymentMethodStore) Create(title, methodType string, details json.RawMessage) (*model.PaymentMethod, error) {
	id := newID()
	_, err := s.db.Exec(
		`INSERT INTO payment_methods (id, title, details, type) VALUES (?, ?, ?, ?)`,
		id, title, string(details), methodType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment method: %w", err)
	}
	return s.GetByID(id)
}

func (s *PaymentMethodStore) GetByID(id string) (*model.PaymentMethod, error) {
	row := s.db.QueryRow(`SELECT `+paymentMethodCols+` FROM payment_methods WHERE id = ?`, id)
	m, err := scanPaymentMethod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return m, nil
}

// List returns payment methods in creation order, optionally only active ones.
func (s *PaymentMethodStore) List(activeOnly bool) ([]model.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodCols + ` FROM payment_methods`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []model.PaymentMethod
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, *m)
	}
	return methods, rows.Err()
}

func (s *PaymentMethodStore) SetActive(id string, active bool) (*model.PaymentMethod, error) {
	_, err := s.db.Exec(`UPDATE payment_methods SET is_active = ? WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return nil, fmt.Errorf("set payment method active: %w", err)
	}
	return s.GetByID(id)
}

func (s *PaymentMethodStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM payment_methods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	return nil
}
