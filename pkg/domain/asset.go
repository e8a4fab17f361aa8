package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// AssetType distinguishes holdings from liabilities.
type AssetType string

const (
	AssetCash AssetType = "CASH"
	AssetLoan AssetType = "LOAN"
)

// AssetTypes is the cycle order used by forms.
var AssetTypes = []AssetType{AssetCash, AssetLoan}

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	return t == AssetCash || t == AssetLoan
}

// MaxNameLen is the longest accepted asset or group name, in runes.
const MaxNameLen = 100

// Asset is a cash holding or a loan.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Type      AssetType `json:"type"`
	Name      string    `json:"name"`
	Amount    Amount    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetInput is the payload for creating an asset.
type AssetInput struct {
	Type   AssetType `json:"type"`
	Name   string    `json:"name"`
	Amount Amount    `json:"amount"`
}

// Validate checks the input before it is sent.
func (in AssetInput) Validate() error {
	if !in.Type.Valid() {
		return invalid("type", "must be CASH or LOAN")
	}
	if err := validateName("name", in.Name); err != nil {
		return err
	}
	return validateAmount(in.Amount)
}

// AssetPatch is the payload for updating an asset. Nil fields are left unchanged.
type AssetPatch struct {
	Type   *AssetType `json:"type,omitempty"`
	Name   *string    `json:"name,omitempty"`
	Amount *Amount    `json:"amount,omitempty"`
}

// Validate checks the fields that are set.
func (p AssetPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return invalid("type", "must be CASH or LOAN")
	}
	if p.Name != nil {
		if err := validateName("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		return validateAmount(*p.Amount)
	}
	return nil
}

func validateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(field, "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return invalid(field, "must be at most 100 characters")
	}
	return nil
}

func validateAmount(a Amount) error {
	if !a.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	return nil
}
