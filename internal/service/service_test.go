package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"venomshop/backend/internal/analytics"
	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/metrics"
	"venomshop/backend/internal/settings"
	"venomshop/backend/internal/store"
	"venomshop/backend/internal/store/memory"
)

var fixedNow = time.Date(2025, time.March, 15, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *metrics.Ledger) {
	t.Helper()
	recorder := metrics.New(prometheus.NewRegistry())
	svc := New(memory.New(), analytics.New(analytics.DefaultOptions()), &settings.MemoryStore{}, nil, recorder, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, recorder
}

func price(v float64) *float64 { return &v }

func addCase(t *testing.T, svc *Service, stock float64) domain.Item {
	t.Helper()
	item, err := svc.AddItem(context.Background(), domain.KindShopProduct, domain.ItemCreateRequest{
		Name:          "Phone Case",
		Supplier:      "Acme",
		PurchasePrice: 10,
		SalePrice:     price(15),
		InitialStock:  stock,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return item
}

func TestAddItemSeedsInitialStockAsPurchase(t *testing.T) {
	svc, recorder := newTestService(t)
	ctx := context.Background()

	item := addCase(t, svc, 20)
	if item.Stock != 20 {
		t.Fatalf("expected stock 20, got %v", item.Stock)
	}

	entries, err := svc.ListTransactions(ctx, nil, domain.DateRange{})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != domain.TxPurchase || entries[0].Quantity != 20 {
		t.Fatalf("expected one seed purchase of 20, got %+v", entries)
	}
	if !entries[0].Date.Equal(fixedNow) {
		t.Fatalf("expected seed dated now, got %v", entries[0].Date)
	}

	got := testutil.ToFloat64(recorder.Transactions().WithLabelValues(string(domain.KindShopProduct), string(domain.TxPurchase)))
	if got != 1 {
		t.Fatalf("expected one committed purchase metric, got %v", got)
	}
}

func TestAddItemValidatesSides(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, domain.KindLaserMaterial, domain.ItemCreateRequest{Name: "MDF 4mm", PurchasePrice: 3})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected laser without side to be rejected, got %v", err)
	}

	_, err = svc.AddItem(ctx, domain.KindShopProduct, domain.ItemCreateRequest{Name: "Cable", Side: domain.SideFace})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected shop product with side to be rejected, got %v", err)
	}

	laser, err := svc.AddItem(ctx, domain.KindLaserMaterial, domain.ItemCreateRequest{
		Name:          "MDF 4mm",
		Side:          "Face ",
		PurchasePrice: 3,
		InitialStock:  12.5,
		PurchaseDate:  "2025-03-01",
	})
	if err != nil {
		t.Fatalf("add laser: %v", err)
	}
	if laser.Side != domain.SideFace || laser.Stock != 12.5 {
		t.Fatalf("unexpected laser item %+v", laser)
	}
}

func TestAddItemRejectsFractionalShopStockAndDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, domain.KindShopProduct, domain.ItemCreateRequest{Name: "Cable", PurchasePrice: 2, InitialStock: 1.5})
	if !errors.Is(err, store.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}

	addCase(t, svc, 1)
	_, err = svc.AddItem(ctx, domain.KindShopProduct, domain.ItemCreateRequest{Name: "Phone Case", PurchasePrice: 10})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestRecordTransactionRejectionsLeaveStateAndCountMetrics(t *testing.T) {
	svc, recorder := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 3)

	_, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
		Kind: domain.KindShopProduct, Type: domain.TxSale, ItemID: item.ID, Quantity: 4,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionRequest{
		Kind: domain.KindShopProduct, Type: "refund", ItemID: item.ID, Quantity: 1,
	})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction type, got %v", err)
	}

	current, err := svc.FindItemByID(ctx, domain.KindShopProduct, item.ID)
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	if current.Stock != 3 {
		t.Fatalf("expected stock untouched at 3, got %v", current.Stock)
	}

	rejected := testutil.ToFloat64(recorder.Rejections().WithLabelValues(string(domain.KindShopProduct), "insufficient_stock"))
	if rejected != 1 {
		t.Fatalf("expected one insufficient_stock rejection, got %v", rejected)
	}
}

func TestRecordTransactionSaleWithOverrideFreezesPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 5)

	tx, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
		Kind:         domain.KindShopProduct,
		Type:         domain.TxSale,
		ItemID:       item.ID,
		Quantity:     2,
		UnitPrice:    price(12),
		CustomerName: "  Rana ",
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if tx.UnitPrice != 12 || tx.TotalAmount != 24 || tx.UnitCost != 10 {
		t.Fatalf("unexpected sale %+v", tx)
	}
	if tx.CustomerName != "Rana" {
		t.Fatalf("expected trimmed customer name, got %q", tx.CustomerName)
	}
}

func TestReceiveStockMergesIntoExistingLotOrCreatesNew(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 5)

	merged, err := svc.ReceiveStock(ctx, domain.KindShopProduct, domain.RestockRequest{
		Name:          "Phone Case",
		PurchasePrice: 10,
		SalePrice:     price(16),
		Quantity:      7,
	})
	if err != nil {
		t.Fatalf("restock existing: %v", err)
	}
	if merged.Created || merged.Item.ID != item.ID || merged.Item.Stock != 12 {
		t.Fatalf("expected merge into lot %d with stock 12, got %+v", item.ID, merged)
	}
	if merged.Item.SalePrice == nil || *merged.Item.SalePrice != 16 {
		t.Fatalf("expected sale price updated to 16, got %v", merged.Item.SalePrice)
	}
	if merged.Transaction == nil || merged.Transaction.Type != domain.TxPurchase {
		t.Fatalf("expected purchase transaction, got %+v", merged.Transaction)
	}

	fresh, err := svc.ReceiveStock(ctx, domain.KindShopProduct, domain.RestockRequest{
		Name:          "Phone Case",
		PurchasePrice: 11,
		Quantity:      4,
	})
	if err != nil {
		t.Fatalf("restock new lot: %v", err)
	}
	if !fresh.Created || fresh.Item.ID == item.ID || fresh.Item.Stock != 4 {
		t.Fatalf("expected a new lot with stock 4, got %+v", fresh)
	}

	items, err := svc.ListItems(ctx, domain.KindShopProduct)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected two cost lots, got %d", len(items))
	}
}

// failingLedger accepts catalog writes but fails every ledger append.
type failingLedger struct {
	store.Repository
}

func (failingLedger) RecordTransaction(context.Context, domain.LedgerInput) (*domain.Transaction, error) {
	return nil, store.Storage(errors.New("disk full"))
}

func TestReceiveStockKeepsSalePriceWhenPurchaseFails(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	svc := New(failingLedger{Repository: repo}, nil, nil, nil, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	item := addCase(t, svc, 5)

	_, err := svc.ReceiveStock(ctx, domain.KindShopProduct, domain.RestockRequest{
		Name:          "Phone Case",
		PurchasePrice: 10,
		SalePrice:     price(18),
		Quantity:      3,
	})
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	got, err := svc.FindItemByID(ctx, domain.KindShopProduct, item.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.SalePrice == nil || *got.SalePrice != 15 {
		t.Fatalf("expected sale price to stay 15, got %v", got.SalePrice)
	}
	if got.Stock != 5 {
		t.Fatalf("expected stock to stay 5, got %v", got.Stock)
	}
}

func TestAddItemStoresPurchaseDateAsDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, domain.KindLaserMaterial, domain.ItemCreateRequest{
		Name:          "MDF 4mm",
		Side:          domain.SideFace,
		PurchaseDate:  "2025-03-02 14:30:00",
		PurchasePrice: 6,
		InitialStock:  2,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	day := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	if !item.PurchaseDate.Equal(day) {
		t.Fatalf("expected purchase date %v, got %v", day, item.PurchaseDate)
	}

	found, err := svc.FindItemByIdentity(ctx, item.Identity())
	if err != nil {
		t.Fatalf("find by identity: %v", err)
	}
	if !reflect.DeepEqual(found, item) {
		t.Fatalf("round trip changed the item:\n%+v\n%+v", item, found)
	}

	entries, err := svc.ListTransactions(ctx, nil, domain.DateRange{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	seeded := time.Date(2025, time.March, 2, 14, 30, 0, 0, time.UTC)
	if len(entries) != 1 || !entries[0].Date.Equal(seeded) {
		t.Fatalf("expected the seed purchase at %v, got %+v", seeded, entries)
	}
}

func TestUpdateItemDoesNotWriteLedger(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 5)

	updated, err := svc.UpdateItem(ctx, domain.KindShopProduct, item.ID, domain.ItemUpdateRequest{Stock: price(9)})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Stock != 9 {
		t.Fatalf("expected corrected stock 9, got %v", updated.Stock)
	}

	entries, err := svc.ListTransactions(ctx, nil, domain.DateRange{})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the seed entry, got %d", len(entries))
	}

	_, err = svc.UpdateItem(ctx, domain.KindShopProduct, item.ID, domain.ItemUpdateRequest{Stock: price(2.5)})
	if !errors.Is(err, store.ErrInvalidQuantity) {
		t.Fatalf("expected fractional shop stock to be rejected, got %v", err)
	}
}

func TestSearchTransactionsMatchesCustomerAndNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 10)

	for _, req := range []domain.TransactionRequest{
		{Kind: domain.KindShopProduct, Type: domain.TxSale, ItemID: item.ID, Quantity: 1, CustomerName: "Layla"},
		{Kind: domain.KindShopProduct, Type: domain.TxWaste, ItemID: item.ID, Quantity: 1, Notes: "cracked in transit"},
	} {
		if _, err := svc.RecordTransaction(ctx, req); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	byCustomer, err := svc.SearchTransactions(ctx, nil, domain.DateRange{}, "layla")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].CustomerName != "Layla" {
		t.Fatalf("expected one match for customer, got %+v", byCustomer)
	}

	byNotes, err := svc.SearchTransactions(ctx, nil, domain.DateRange{}, "CRACKED")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byNotes) != 1 || byNotes[0].Type != domain.TxWaste {
		t.Fatalf("expected waste entry match, got %+v", byNotes)
	}

	all, err := svc.SearchTransactions(ctx, nil, domain.DateRange{}, "  ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected blank term to return all 3 entries, got %d", len(all))
	}
}

func TestDateRangeDefaultsToMonthToDateAndPersists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.DateRange(ctx)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if r != domain.MonthToDate(fixedNow) {
		t.Fatalf("expected month to date, got %+v", r)
	}

	want := domain.DateRange{
		From: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.January, 31, 23, 59, 59, 0, time.UTC),
	}
	if _, err := svc.SaveDateRange(ctx, want); err != nil {
		t.Fatalf("save range: %v", err)
	}
	r, err = svc.DateRange(ctx)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if !r.From.Equal(want.From) || !r.To.Equal(want.To) {
		t.Fatalf("expected saved range, got %+v", r)
	}

	_, err = svc.SaveDateRange(ctx, domain.DateRange{From: want.To, To: want.From})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected reversed range to be rejected, got %v", err)
	}
}

func TestAnalyticsAcrossKindsAndLowStockGauge(t *testing.T) {
	svc, recorder := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 20)

	laser, err := svc.AddItem(ctx, domain.KindLaserMaterial, domain.ItemCreateRequest{
		Name: "Acrylic 3mm", Side: domain.SideBack, PurchasePrice: 4, SalePrice: price(9), InitialStock: 6,
	})
	if err != nil {
		t.Fatalf("add laser: %v", err)
	}

	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
		Kind: domain.KindShopProduct, Type: domain.TxSale, ItemID: item.ID, Quantity: 5,
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
		Kind: domain.KindLaserMaterial, Type: domain.TxSale, ItemID: laser.ID, Quantity: 1.5,
	}); err != nil {
		t.Fatalf("laser sale: %v", err)
	}

	report, err := svc.Analytics(ctx, nil)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if report.Shop.Revenue != 75 || report.Shop.Profit != 25 {
		t.Fatalf("unexpected shop figures %+v", report.Shop)
	}
	if report.Laser.Revenue != 13.5 || report.Laser.Profit != 7.5 {
		t.Fatalf("unexpected laser figures %+v", report.Laser)
	}
	if report.Combined.Revenue != 88.5 {
		t.Fatalf("expected combined revenue 88.5, got %v", report.Combined.Revenue)
	}
	if report.Laser.LowStockCount != 1 {
		t.Fatalf("expected laser lot below threshold, got %d", report.Laser.LowStockCount)
	}

	gauge := testutil.ToFloat64(recorder.LowStock().WithLabelValues(string(domain.KindLaserMaterial)))
	if gauge != 1 {
		t.Fatalf("expected low stock gauge 1, got %v", gauge)
	}
}

func TestDeleteItemRemovesItsLedger(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addCase(t, svc, 10)
	charger, err := svc.AddItem(ctx, domain.KindShopProduct, domain.ItemCreateRequest{
		Name: "Charger", PurchasePrice: 8, SalePrice: price(20), InitialStock: 4,
	})
	if err != nil {
		t.Fatalf("add charger: %v", err)
	}
	for _, sale := range []struct {
		id int64
		q  float64
	}{{item.ID, 2}, {charger.ID, 1}} {
		if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
			Kind: domain.KindShopProduct, Type: domain.TxSale, ItemID: sale.id, Quantity: sale.q,
		}); err != nil {
			t.Fatalf("sale: %v", err)
		}
	}

	march := domain.MonthToDate(fixedNow)
	before, err := svc.Analytics(ctx, &march)
	if err != nil {
		t.Fatalf("analytics before delete: %v", err)
	}
	if before.Shop.Revenue != 50 || before.Shop.SalesCount != 2 {
		t.Fatalf("expected both sales counted, got %+v", before.Shop)
	}

	if err := svc.DeleteItem(ctx, domain.KindShopProduct, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.FindItemByID(ctx, domain.KindShopProduct, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	entries, err := svc.ListTransactions(ctx, nil, domain.DateRange{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, entry := range entries {
		if entry.ItemID == item.ID {
			t.Fatalf("expected cascade delete, found entry %+v", entry)
		}
	}
	if len(entries) != 2 {
		t.Fatalf("expected only the charger's purchase and sale, got %d entries", len(entries))
	}

	after, err := svc.Analytics(ctx, &march)
	if err != nil {
		t.Fatalf("analytics after delete: %v", err)
	}
	if after.Shop.Revenue != 20 || after.Shop.COGS != 8 || after.Shop.SalesCount != 1 {
		t.Fatalf("expected only the charger's figures, got %+v", after.Shop)
	}
	if len(after.Shop.TopSellers) != 1 || after.Shop.TopSellers[0].Name != "Charger" {
		t.Fatalf("expected the deleted lot gone from top sellers, got %+v", after.Shop.TopSellers)
	}
}

func TestReadsAreRepeatable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cheap := addCase(t, svc, 3)
	dear, err := svc.AddItem(ctx, domain.KindShopProduct, domain.ItemCreateRequest{
		Name: "Phone Case", PurchasePrice: 12, SalePrice: price(15), InitialStock: 3,
	})
	if err != nil {
		t.Fatalf("add second lot: %v", err)
	}
	for _, id := range []int64{cheap.ID, dear.ID} {
		if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{
			Kind: domain.KindShopProduct, Type: domain.TxSale, ItemID: id, Quantity: 1,
		}); err != nil {
			t.Fatalf("sale: %v", err)
		}
	}

	march := domain.MonthToDate(fixedNow)
	firstItems, err := svc.ListItems(ctx, domain.KindShopProduct)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	firstEntries, err := svc.ListTransactions(ctx, nil, march)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	firstReport, err := svc.Analytics(ctx, &march)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if len(firstReport.Shop.LowStock) != 2 {
		t.Fatalf("expected both equal-stock lots low, got %+v", firstReport.Shop.LowStock)
	}

	for i := 0; i < 3; i++ {
		items, err := svc.ListItems(ctx, domain.KindShopProduct)
		if err != nil {
			t.Fatalf("list items: %v", err)
		}
		if !reflect.DeepEqual(items, firstItems) {
			t.Fatalf("item list changed between reads:\n%+v\n%+v", firstItems, items)
		}
		entries, err := svc.ListTransactions(ctx, nil, march)
		if err != nil {
			t.Fatalf("list transactions: %v", err)
		}
		if !reflect.DeepEqual(entries, firstEntries) {
			t.Fatalf("transaction list changed between reads")
		}
		report, err := svc.Analytics(ctx, &march)
		if err != nil {
			t.Fatalf("analytics: %v", err)
		}
		if !reflect.DeepEqual(report, firstReport) {
			t.Fatalf("analytics changed between reads:\n%+v\n%+v", firstReport, report)
		}
	}
}

func TestAskUsesLocalResponderWithoutModel(t *testing.T) {
	svc, _ := newTestService(t)
	addCase(t, svc, 3)

	reply, err := svc.Ask(context.Background(), "what is low stock?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Source != "local" || reply.Reply == "" {
		t.Fatalf("expected a local reply, got %+v", reply)
	}

	if _, err := svc.Ask(context.Background(), "   "); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected empty question rejected, got %v", err)
	}
}
