package tui

import (
	"context"

	"github.com/google/uuid"

	"github.com/naveenspark/household/internal/session"
	"github.com/naveenspark/household/pkg/domain"
)

// API is the part of *client.Client the views call.
type API interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	CreateAsset(ctx context.Context, in domain.AssetInput) (*domain.Asset, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, patch domain.AssetPatch) (*domain.Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	CreateTransaction(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, typ domain.TransactionType) ([]domain.Category, error)

	GetSummary(ctx context.Context) (*domain.SummarySnapshot, error)
	GetMonthly(ctx context.Context, year, month int) (*domain.MonthlySnapshot, error)

	CreateFamilyGroup(ctx context.Context, in domain.FamilyGroupInput) (*domain.FamilyGroup, error)
	GetMyFamilyGroup(ctx context.Context) (*domain.FamilyGroup, error)
	AddFamilyMember(ctx context.Context, groupID uuid.UUID, req domain.AddMemberRequest) (*domain.FamilyMember, error)
	RemoveFamilyMember(ctx context.Context, groupID uuid.UUID, userID string) error
}

// Session is the session manager as seen by the view tree.
type Session interface {
	State() session.State
	Updates() <-chan session.State
	SignOut(ctx context.Context) error
}

// SignInFunc starts an interactive sign-in. The outcome arrives as a session
// update.
type SignInFunc func(ctx context.Context) error
