package model

import (
	"encoding/json"
	"time"
)

type PaymentMethod struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Details   json.RawMessage `json:"details"`
	Type      string          `json:"type"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}
