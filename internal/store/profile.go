package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type ProfileStore struct {
	db DBTX
}

func NewProfileStore(db DBTX) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(sc scanner) (*model.Profile, error) {
	var p model.Profile
	var username, fullName, whatsapp sql.NullString

	err := sc.Scan(&p.ID, &username, &fullName, &p.Role, &whatsapp, &p.Balance, &p.TrustScore, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Username = stringPtr(username)
	p.FullName = stringPtr(fullName)
	p.WhatsApp = stringPtr(whatsapp)
	return &p, nil
}

const profileCols = `id, username, full_name, role, whatsapp, balance, trust_score, created_at`

// Create inserts the profile row for an identity. The profile ID is the user ID.
func (s *ProfileStore) Create(id, fullName, role string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, full_name, role) VALUES (?, ?, ?)`,
		id, fullName, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetRole returns the role on the profile row, or "" when no row exists.
func (s *ProfileStore) GetRole(id string) (string, error) {
	var role string
	err := s.db.QueryRow(`SELECT role FROM profiles WHERE id = ?`, id).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get profile role: %w", err)
	}
	return role, nil
}

func (s *ProfileStore) UpdateDetails(id string, username, fullName, whatsapp *string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET username = ?, full_name = ?, whatsapp = ? WHERE id = ?`,
		nullString(username), nullString(fullName), nullString(whatsapp), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) UpdateRole(id, role string) error {
	_, err := s.db.Exec(`UPDATE profiles SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("update profile role: %w", err)
	}
	return nil
}

// AddBalance adjusts the cached balance by delta (negative for debits).
func (s *ProfileStore) AddBalance(id string, delta int64) error {
	result, err := s.db.Exec(`UPDATE profiles SET balance = balance + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("add balance: profile %s not found", id)
	}
	return nil
}
