// Package storetest holds the behavioural suite every store.Repository must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
)

type Factory func(t *testing.T) store.Repository

func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateItemSeedsStockThroughLedger", func(t *testing.T) { testCreateItemSeeds(t, newRepo(t)) })
	t.Run("CreateItemRejectsDuplicateIdentity", func(t *testing.T) { testDuplicateIdentity(t, newRepo(t)) })
	t.Run("GetItemIsScopedByKind", func(t *testing.T) { testKindScope(t, newRepo(t)) })
	t.Run("RecordTransactionAppliesStockRules", func(t *testing.T) { testStockRules(t, newRepo(t)) })
	t.Run("RecordTransactionRejectsOversell", func(t *testing.T) { testOversell(t, newRepo(t)) })
	t.Run("FractionalLaserStock", func(t *testing.T) { testFractionalStock(t, newRepo(t)) })
	t.Run("ListTransactionsFiltersAndOrders", func(t *testing.T) { testListTransactions(t, newRepo(t)) })
	t.Run("UpdateItemCorrectsWithoutLedger", func(t *testing.T) { testUpdateItem(t, newRepo(t)) })
	t.Run("DeleteItemCascades", func(t *testing.T) { testDeleteCascades(t, newRepo(t)) })
	t.Run("ConcurrentSalesNeverOversell", func(t *testing.T) { testConcurrentSales(t, newRepo(t)) })
	t.Run("ReadsAreRepeatable", func(t *testing.T) { testRepeatableReads(t, newRepo(t)) })
}

func price(v float64) *float64 {
	return &v
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 10, 0, 0, 0, time.UTC)
}

func createShop(t *testing.T, repo store.Repository, name string, cost, sale, stock float64) *domain.Item {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), domain.Item{
		Kind:          domain.KindShopProduct,
		Name:          name,
		PurchasePrice: cost,
		SalePrice:     price(sale),
		PurchaseDate:  day(1),
	}, store.SeedInput(domain.KindShopProduct, stock, day(1)))
	require.NoError(t, err)
	return item
}

func record(t *testing.T, repo store.Repository, item *domain.Item, txType domain.TxType, q float64, at time.Time) *domain.Transaction {
	t.Helper()
	tx, err := repo.RecordTransaction(context.Background(), domain.LedgerInput{
		ItemID:   item.ID,
		Kind:     item.Kind,
		Type:     txType,
		Quantity: q,
		Date:     at,
	})
	require.NoError(t, err)
	return tx
}

func testCreateItemSeeds(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 20)
	assert.Equal(t, 20.0, item.Stock)
	assert.NotZero(t, item.ID)

	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TxPurchase, entries[0].Type)
	assert.Equal(t, 20.0, entries[0].Quantity)
	assert.Equal(t, 5.0, entries[0].UnitPrice)
	assert.Equal(t, 100.0, entries[0].TotalAmount)
	assert.Equal(t, "Phone Case", entries[0].ItemName)

	empty, err := repo.CreateItem(ctx, domain.Item{Kind: domain.KindShopProduct, Name: "Sticker", PurchasePrice: 1}, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Stock)

	entries, err = repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func testDuplicateIdentity(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	createShop(t, repo, "Phone Case", 5, 15, 20)

	_, err := repo.CreateItem(ctx, domain.Item{Kind: domain.KindShopProduct, Name: "Phone Case", PurchasePrice: 5}, store.SeedInput(domain.KindShopProduct, 3, day(2)))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	other, err := repo.CreateItem(ctx, domain.Item{Kind: domain.KindShopProduct, Name: "Phone Case", PurchasePrice: 6}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6.0, other.PurchasePrice)

	face, err := repo.CreateItem(ctx, domain.Item{Kind: domain.KindLaserMaterial, Name: "Acrylic", Side: domain.SideFace, PurchasePrice: 10}, nil)
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, domain.Item{Kind: domain.KindLaserMaterial, Name: "Acrylic", Side: domain.SideBack, PurchasePrice: 10}, nil)
	require.NoError(t, err)

	found, err := repo.FindItemByIdentity(ctx, face.Identity())
	require.NoError(t, err)
	assert.Equal(t, face.ID, found.ID)

	_, err = repo.FindItemByIdentity(ctx, domain.Identity{Kind: domain.KindLaserMaterial, Name: "Acrylic", Side: domain.SideFace, PurchasePrice: 11})
	assert.ErrorIs(t, err, store.ErrNotFound)

	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected duplicate must not leave a seed transaction behind")
}

func testKindScope(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Cable", 2, 4, 1)

	_, err := repo.GetItem(ctx, domain.KindLaserMaterial, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.GetItem(ctx, domain.KindShopProduct, item.ID+1000)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := repo.GetItem(ctx, domain.KindShopProduct, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cable", got.Name)

	_, err = repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: domain.KindLaserMaterial, Type: domain.TxPurchase, Quantity: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = repo.DeleteItem(ctx, domain.KindLaserMaterial, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testStockRules(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 10)

	sale := record(t, repo, item, domain.TxSale, 3, day(2))
	assert.Equal(t, 15.0, sale.UnitPrice)
	assert.Equal(t, 45.0, sale.TotalAmount)
	assert.Equal(t, 5.0, sale.UnitCost)

	ret := record(t, repo, item, domain.TxReturn, 1, day(3))
	assert.Equal(t, 15.0, ret.UnitPrice)

	waste := record(t, repo, item, domain.TxWaste, 2, day(4))
	assert.Equal(t, 5.0, waste.UnitPrice)
	assert.Equal(t, 10.0, waste.TotalAmount)

	record(t, repo, item, domain.TxPurchase, 4, day(5))

	got, err := repo.GetItem(ctx, domain.KindShopProduct, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Stock)

	_, err = repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxSale, Quantity: 0})
	assert.ErrorIs(t, err, store.ErrInvalidQuantity)
	_, err = repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxSale, Quantity: 1.5})
	assert.ErrorIs(t, err, store.ErrInvalidQuantity)

	override := record(t, repo, item, domain.TxSale, 1, day(6))
	assert.Equal(t, 15.0, override.UnitPrice)
	custom, err := repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxSale, Quantity: 1, UnitPrice: price(12)})
	require.NoError(t, err)
	assert.Equal(t, 12.0, custom.UnitPrice)
}

func testOversell(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 2)

	_, err := repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxSale, Quantity: 3})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	_, err = repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxWaste, Quantity: 3})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	got, err := repo.GetItem(ctx, item.Kind, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Stock)

	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	record(t, repo, item, domain.TxSale, 2, day(2))
	got, err = repo.GetItem(ctx, item.Kind, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func testFractionalStock(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item, err := repo.CreateItem(ctx, domain.Item{
		Kind:          domain.KindLaserMaterial,
		Name:          "Acrylic 3mm",
		Side:          domain.SideFace,
		PurchasePrice: 10,
		SalePrice:     price(18),
	}, store.SeedInput(domain.KindLaserMaterial, 1, day(1)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		record(t, repo, item, domain.TxSale, 0.1, day(2+i))
	}
	got, err := repo.GetItem(ctx, item.Kind, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Stock)

	record(t, repo, item, domain.TxWaste, 0.7, day(6))
	got, err = repo.GetItem(ctx, item.Kind, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func testListTransactions(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	shop := createShop(t, repo, "Phone Case", 5, 15, 50)
	laser, err := repo.CreateItem(ctx, domain.Item{
		Kind:          domain.KindLaserMaterial,
		Name:          "MDF",
		Side:          domain.SideBack,
		PurchasePrice: 3,
		SalePrice:     price(7),
	}, store.SeedInput(domain.KindLaserMaterial, 10, day(1)))
	require.NoError(t, err)

	first := record(t, repo, shop, domain.TxSale, 1, day(10))
	second := record(t, repo, shop, domain.TxSale, 2, day(10))
	record(t, repo, shop, domain.TxSale, 3, day(20))
	record(t, repo, laser, domain.TxSale, 1.5, day(12))

	kind := domain.KindShopProduct
	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{
		Kind:  &kind,
		Range: domain.DateRange{From: day(10), To: day(15)},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID, "same date orders newest id first")
	assert.Equal(t, first.ID, entries[1].ID)

	all, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.After(all[i-1].Date))
	}
	assert.Equal(t, day(20), all[0].Date)

	laserKind := domain.KindLaserMaterial
	laserEntries, err := repo.ListTransactions(ctx, domain.TransactionFilter{Kind: &laserKind})
	require.NoError(t, err)
	require.Len(t, laserEntries, 2)
	assert.Equal(t, "MDF (back)", laserEntries[0].DisplayName())
	assert.Equal(t, 3.0, laserEntries[0].ItemPurchasePrice)
}

func testUpdateItem(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 10)
	createShop(t, repo, "Charger", 8, 20, 1)

	item.Stock = 7
	item.SalePrice = price(16)
	item.Supplier = "Delta"
	updated, err := repo.UpdateItem(ctx, *item)
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.Stock)
	assert.Equal(t, 16.0, *updated.SalePrice)
	assert.Equal(t, "Delta", updated.Supplier)

	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "direct correction writes no ledger entry")

	clash := *updated
	clash.Name = "Charger"
	clash.PurchasePrice = 8
	_, err = repo.UpdateItem(ctx, clash)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	missing := *updated
	missing.ID += 1000
	_, err = repo.UpdateItem(ctx, missing)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteCascades(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 10)
	keep := createShop(t, repo, "Charger", 8, 20, 4)
	record(t, repo, item, domain.TxSale, 2, day(3))
	record(t, repo, keep, domain.TxSale, 1, day(3))

	require.NoError(t, repo.DeleteItem(ctx, item.Kind, item.ID))

	_, err := repo.GetItem(ctx, item.Kind, item.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, keep.ID, entry.ItemID)
	}

	assert.ErrorIs(t, repo.DeleteItem(ctx, item.Kind, item.ID), store.ErrNotFound)

	items, err := repo.ListItems(ctx, domain.KindShopProduct)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Charger", items[0].Name)
}

func testConcurrentSales(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	item := createShop(t, repo, "Phone Case", 5, 15, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordTransaction(ctx, domain.LedgerInput{ItemID: item.ID, Kind: item.Kind, Type: domain.TxSale, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, rejected)

	got, err := repo.GetItem(ctx, item.Kind, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func testRepeatableReads(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	cheap := createShop(t, repo, "Phone Case", 10, 15, 3)
	dear := createShop(t, repo, "Phone Case", 12, 15, 3)
	record(t, repo, cheap, domain.TxSale, 1, day(4))
	record(t, repo, dear, domain.TxSale, 1, day(4))

	firstItems, err := repo.ListItems(ctx, domain.KindShopProduct)
	require.NoError(t, err)
	require.Len(t, firstItems, 2)
	firstEntries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, firstEntries, 4)

	for i := 0; i < 3; i++ {
		items, err := repo.ListItems(ctx, domain.KindShopProduct)
		require.NoError(t, err)
		assert.Equal(t, firstItems, items)

		entries, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
		require.NoError(t, err)
		assert.Equal(t, firstEntries, entries)
	}
}
