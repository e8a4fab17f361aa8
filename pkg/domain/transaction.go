package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMemoLen is the longest accepted transaction memo, in runes.
const MaxMemoLen = 500

// Transaction is a single income or expense entry.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	UserID     string          `json:"user_id"`
	Type       TransactionType `json:"type"`
	Amount     Amount          `json:"amount"`
	CategoryID uuid.UUID       `json:"category_id"`
	Category   *Category       `json:"category,omitempty"`
	Date       Date            `json:"date"`
	Memo       *string         `json:"memo"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CategoryName returns the embedded category name, if any.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// TransactionInput is the payload for creating a transaction.
type TransactionInput struct {
	Type       TransactionType `json:"type"`
	Amount     Amount          `json:"amount"`
	CategoryID uuid.UUID       `json:"category_id"`
	Date       Date            `json:"date"`
	Memo       *string         `json:"memo,omitempty"`
}

// Validate checks the input before it is sent.
func (in TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return invalid("type", "must be INCOME or EXPENSE")
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if in.CategoryID == uuid.Nil {
		return invalid("category", "is required")
	}
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	return validateMemo(in.Memo)
}

// TransactionPatch is the payload for updating a transaction.
type TransactionPatch struct {
	Type       *TransactionType `json:"type,omitempty"`
	Amount     *Amount          `json:"amount,omitempty"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	Date       *Date            `json:"date,omitempty"`
	Memo       *string          `json:"memo,omitempty"`
}

// Validate checks the fields that are set.
func (p TransactionPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return invalid("type", "must be INCOME or EXPENSE")
	}
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.CategoryID != nil && *p.CategoryID == uuid.Nil {
		return invalid("category", "is required")
	}
	return validateMemo(p.Memo)
}

func validateMemo(memo *string) error {
	if memo != nil && utf8.RuneCountInString(*memo) > MaxMemoLen {
		return invalid("memo", "must be at most 500 characters")
	}
	return nil
}

// TransactionFilter narrows a transaction listing. Zero values are omitted.
type TransactionFilter struct {
	Type      TransactionType
	StartDate Date
	EndDate   Date
}
