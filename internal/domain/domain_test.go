package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStock(t *testing.T) {
	next, err := NextStock(10, TxSale, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, next)

	next, err = NextStock(7, TxReturn, 1)
	require.NoError(t, err)
	assert.Equal(t, 8.0, next)

	next, err = NextStock(0.3, TxWaste, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.2, next)

	_, err = NextStock(2, TxSale, 2.5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "requested 2.5, available 2")
}

func TestValidateQuantity(t *testing.T) {
	assert.ErrorIs(t, ValidateQuantity(KindShopProduct, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, ValidateQuantity(KindLaserMaterial, -1), ErrInvalidQuantity)
	assert.ErrorIs(t, ValidateQuantity(KindShopProduct, 1.5), ErrInvalidQuantity)
	assert.NoError(t, ValidateQuantity(KindLaserMaterial, 1.5))
	assert.NoError(t, ValidateQuantity(KindShopProduct, 2))
}

func TestBuildTransactionResolvesPrices(t *testing.T) {
	sale := 15.0
	item := Item{ID: 4, Kind: KindShopProduct, Name: "Case", PurchasePrice: 10, SalePrice: &sale, Stock: 5}
	at := time.Date(2025, time.July, 1, 9, 30, 15, 500, time.FixedZone("EET", 2*3600))

	tx, next, err := BuildTransaction(item, LedgerInput{Type: TxSale, Quantity: 2, CustomerName: "Ali", Notes: "cash", Date: at})
	require.NoError(t, err)
	assert.Equal(t, 3.0, next)
	assert.Equal(t, 15.0, tx.UnitPrice)
	assert.Equal(t, 10.0, tx.UnitCost)
	assert.Equal(t, 30.0, tx.TotalAmount)
	assert.Equal(t, "Ali", tx.CustomerName)
	assert.Equal(t, time.Date(2025, time.July, 1, 7, 30, 15, 0, time.UTC), tx.Date)

	waste, _, err := BuildTransaction(item, LedgerInput{Type: TxWaste, Quantity: 1, CustomerName: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, waste.UnitPrice)
	assert.Empty(t, waste.CustomerName)

	item.SalePrice = nil
	_, _, err = BuildTransaction(item, LedgerInput{Type: TxReturn, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	negative := -1.0
	_, _, err = BuildTransaction(item, LedgerInput{Type: TxPurchase, Quantity: 1, UnitPrice: &negative})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-09", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 9, 23, 59, 59, 0, time.UTC), got)

	got, err = ParseDate("2025-03-09 08:15:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 9, 8, 15, 0, 0, time.UTC), got)

	got, err = ParseDate("2025-03-09T08:15:00+02:00", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 9, 6, 15, 0, 0, time.UTC), got)

	got, err = ParseDate("", false)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("09/03/2025", false)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestMonthToDate(t *testing.T) {
	r := MonthToDate(time.Date(2025, time.August, 17, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2025, time.August, 17, 23, 59, 59, 0, time.UTC), r.To)
	assert.True(t, r.Contains(time.Date(2025, time.August, 17, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, time.July, 31, 23, 0, 0, 0, time.UTC)))
}

func TestLedgerEntryMatches(t *testing.T) {
	entry := LedgerEntry{
		Transaction: Transaction{CustomerName: "Mona Adel", CustomerPhone: "0100", Notes: "gift wrap",
			Date: time.Date(2025, time.May, 2, 10, 0, 0, 0, time.UTC)},
		ItemName: "Acrylic",
		ItemSide: SideFace,
	}
	assert.True(t, entry.Matches("ADEL"))
	assert.True(t, entry.Matches("face"))
	assert.True(t, entry.Matches("2025-05-02"))
	assert.True(t, entry.Matches("wrap"))
	assert.False(t, entry.Matches("plywood"))
}
