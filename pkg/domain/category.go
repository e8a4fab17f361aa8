package domain

import "github.com/google/uuid"

// TransactionType distinguishes income from expense.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// TransactionTypes is the cycle order used by forms.
var TransactionTypes = []TransactionType{TransactionExpense, TransactionIncome}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Category is a server-defined income or expense bucket.
type Category struct {
	ID           uuid.UUID       `json:"id"`
	Type         TransactionType `json:"type"`
	Name         string          `json:"name"`
	DisplayOrder int             `json:"display_order"`
}
