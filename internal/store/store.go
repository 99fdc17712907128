package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venomshop/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("duplicate item")
	ErrInsufficientStock  = domain.ErrInsufficientStock
	ErrInvalidQuantity    = domain.ErrInvalidQuantity
	ErrInvalidTransaction = domain.ErrInvalidTransaction
	ErrStorage            = errors.New("storage failure")
)

// Storage wraps a driver error so callers can match ErrStorage and still inspect the cause.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Repository persists the item catalog and the transaction log. RecordTransaction
// is the only method that changes stock together with a ledger append; CreateItem
// routes its seed purchase through the same path inside one storage transaction.
type Repository interface {
	CreateItem(ctx context.Context, item domain.Item, seed *domain.LedgerInput) (*domain.Item, error)
	GetItem(ctx context.Context, kind domain.Kind, id int64) (*domain.Item, error)
	FindItemByIdentity(ctx context.Context, identity domain.Identity) (*domain.Item, error)
	ListItems(ctx context.Context, kind domain.Kind) ([]domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	DeleteItem(ctx context.Context, kind domain.Kind, id int64) error
	RecordTransaction(ctx context.Context, in domain.LedgerInput) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.LedgerEntry, error)
}

// SeedInput builds the implicit purchase that brings a new lot to its initial stock.
func SeedInput(kind domain.Kind, quantity float64, at time.Time) *domain.LedgerInput {
	if quantity <= 0 {
		return nil
	}
	return &domain.LedgerInput{
		Kind:     kind,
		Type:     domain.TxPurchase,
		Quantity: quantity,
		Notes:    "initial stock",
		Date:     at,
	}
}

// Seed runs the seed purchase against a freshly created item with zero stock.
func Seed(created domain.Item, seed *domain.LedgerInput) (domain.Transaction, float64, error) {
	in := *seed
	in.ItemID = created.ID
	created.Stock = 0
	return domain.BuildTransaction(created, in)
}
