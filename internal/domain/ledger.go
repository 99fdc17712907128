package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stock quantities and amounts are kept to this many decimal places.
const stockPlaces = 6

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// ValidateQuantity checks that q is a positive amount expressible in the units of kind.
func ValidateQuantity(kind Kind, q float64) error {
	if q <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}
	if kind.WholeUnits() && !decimal.NewFromFloat(q).IsInteger() {
		return fmt.Errorf("%w: %s is counted in whole units", ErrInvalidQuantity, kind)
	}
	return nil
}

// StockDelta is the signed stock change a transaction type applies.
func StockDelta(t TxType, quantity float64) float64 {
	if t.Outbound() {
		return -quantity
	}
	return quantity
}

// NextStock applies a transaction of type t to current stock, refusing to go negative.
func NextStock(current float64, t TxType, quantity float64) (float64, error) {
	cur := decimal.NewFromFloat(current)
	q := decimal.NewFromFloat(quantity)
	if t.Outbound() && q.GreaterThan(cur) {
		return current, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientStock, FormatQuantity(quantity), FormatQuantity(current))
	}
	next := cur.Add(decimal.NewFromFloat(StockDelta(t, quantity))).Round(stockPlaces)
	return next.InexactFloat64(), nil
}

// ResolveUnitPrice picks the price frozen into a transaction: the sale price for
// sales and returns, the purchase price for purchases and waste, unless overridden.
func ResolveUnitPrice(item Item, t TxType, override *float64) (float64, error) {
	if override != nil {
		if *override < 0 {
			return 0, fmt.Errorf("%w: unit price must not be negative", ErrInvalidTransaction)
		}
		return *override, nil
	}
	switch t {
	case TxSale, TxReturn:
		if item.SalePrice == nil {
			return 0, fmt.Errorf("%w: item has no sale price", ErrInvalidTransaction)
		}
		return *item.SalePrice, nil
	default:
		return item.PurchasePrice, nil
	}
}

// LedgerInput carries a validated mutation request into a repository.
type LedgerInput struct {
	ItemID        int64
	Kind          Kind
	Type          TxType
	Quantity      float64
	UnitPrice     *float64
	CustomerName  string
	CustomerPhone string
	Notes         string
	Date          time.Time
}

// BuildTransaction resolves prices against the current item and computes the
// resulting stock. It never mutates item; callers persist both results together.
func BuildTransaction(item Item, in LedgerInput) (Transaction, float64, error) {
	if err := ValidateQuantity(item.Kind, in.Quantity); err != nil {
		return Transaction{}, item.Stock, err
	}
	unitPrice, err := ResolveUnitPrice(item, in.Type, in.UnitPrice)
	if err != nil {
		return Transaction{}, item.Stock, err
	}
	next, err := NextStock(item.Stock, in.Type, in.Quantity)
	if err != nil {
		return Transaction{}, item.Stock, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	tx := Transaction{
		ItemID:      item.ID,
		Kind:        item.Kind,
		Type:        in.Type,
		Quantity:    in.Quantity,
		UnitPrice:   unitPrice,
		UnitCost:    item.PurchasePrice,
		TotalAmount: Amount(in.Quantity, unitPrice),
		Date:        date.UTC().Truncate(time.Second),
		Notes:       in.Notes,
	}
	if in.Type == TxSale || in.Type == TxReturn {
		tx.CustomerName = in.CustomerName
		tx.CustomerPhone = in.CustomerPhone
	}
	return tx, next, nil
}

// Amount multiplies quantity by unit price in decimal.
func Amount(quantity float64, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(stockPlaces).InexactFloat64()
}

func FormatQuantity(q float64) string {
	return decimal.NewFromFloat(q).String()
}
