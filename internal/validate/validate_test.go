package validate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller"`
	Slots    int    `json:"total_slots" validate:"gte=1,max=20"`
}

type method struct {
	Details json.RawMessage `json:"details" validate:"required,jsonobject"`
}

func TestStructValid(t *testing.T) {
	err := Struct(signup{Email: "a@example.com", Password: "longenough", Role: "seller", Slots: 3})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestStructUsesJSONFieldNames(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "short", Role: "admin", Slots: 0})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	for _, field := range []string{"email", "password", "role", "total_slots"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("missing field %q in %v", field, verr.Fields)
		}
	}
	if got := verr.Fields["role"]; got != "must be one of: buyer, seller" {
		t.Errorf("role message = %q", got)
	}
	if !strings.HasPrefix(verr.Error(), "validation failed: email:") {
		t.Errorf("Error() = %q, want sorted fields", verr.Error())
	}
}

func TestJSONObjectRule(t *testing.T) {
	if err := Struct(method{Details: json.RawMessage(`{"iban":"DE00"}`)}); err != nil {
		t.Errorf("object: %v", err)
	}

	for _, raw := range []string{`[1,2]`, `"text"`, `{broken`} {
		err := Struct(method{Details: json.RawMessage(raw)})
		var verr *Error
		if !errors.As(err, &verr) {
			t.Errorf("%s: err = %v, want *Error", raw, err)
			continue
		}
		if verr.Fields["details"] != "must be a JSON object" {
			t.Errorf("%s: message = %q", raw, verr.Fields["details"])
		}
	}
}

func TestField(t *testing.T) {
	err := Field("upsell_listing_id", "must be one of your active listings")
	if err.Fields["upsell_listing_id"] == "" {
		t.Fatal("expected field message")
	}
}
