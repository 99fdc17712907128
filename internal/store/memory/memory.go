package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	nextItemID   int64
	nextTxID     int64
	items        map[int64]domain.Item
	transactions []domain.Transaction
}

func New() *Store {
	return &Store{
		items:        make(map[int64]domain.Item),
		transactions: make([]domain.Transaction, 0, 128),
	}
}

// NewSeeded returns a store holding a few demo lots for dev mode.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	purchased := time.Now().UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour)
	lots := []struct {
		item  domain.Item
		stock float64
	}{
		{domain.Item{Kind: domain.KindShopProduct, Name: "Phone Case", Supplier: "Delta", PurchasePrice: 40, SalePrice: floatPtr(75)}, 30},
		{domain.Item{Kind: domain.KindShopProduct, Name: "USB-C Cable", Supplier: "Delta", PurchasePrice: 25, SalePrice: floatPtr(50)}, 60},
		{domain.Item{Kind: domain.KindShopProduct, Name: "Screen Protector", PurchasePrice: 15, SalePrice: floatPtr(35)}, 8},
		{domain.Item{Kind: domain.KindLaserMaterial, Name: "Acrylic 3mm", Side: domain.SideFace, PurchasePrice: 120, SalePrice: floatPtr(180)}, 12.5},
		{domain.Item{Kind: domain.KindLaserMaterial, Name: "Acrylic 3mm", Side: domain.SideBack, PurchasePrice: 110, SalePrice: floatPtr(165)}, 6},
		{domain.Item{Kind: domain.KindLaserMaterial, Name: "MDF 4mm", Side: domain.SideFace, PurchasePrice: 60, SalePrice: floatPtr(95)}, 20},
	}
	for _, lot := range lots {
		lot.item.PurchaseDate = purchased
		if _, err := s.CreateItem(ctx, lot.item, store.SeedInput(lot.item.Kind, lot.stock, purchased)); err != nil {
			panic(fmt.Sprintf("memory: seed %s: %v", lot.item.DisplayName(), err))
		}
	}
	return s
}

func (s *Store) CreateItem(_ context.Context, item domain.Item, seed *domain.LedgerInput) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !item.Kind.Valid() || item.Name == "" {
		return nil, store.ErrInvalidTransaction
	}
	for _, existing := range s.items {
		if existing.Identity() == item.Identity() {
			return nil, store.ErrDuplicate
		}
	}

	item.ID = s.nextItemID + 1
	item.Stock = 0
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	var seedTx *domain.Transaction
	if seed != nil {
		tx, next, err := store.Seed(item, seed)
		if err != nil {
			return nil, err
		}
		item.Stock = next
		seedTx = &tx
	}

	s.nextItemID = item.ID
	s.items[item.ID] = item
	if seedTx != nil {
		s.appendLocked(*seedTx)
	}

	created := item
	return &created, nil
}

func (s *Store) GetItem(_ context.Context, kind domain.Kind, id int64) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok || item.Kind != kind {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) FindItemByIdentity(_ context.Context, identity domain.Identity) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.Identity() == identity {
			copyItem := item
			return &copyItem, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListItems(_ context.Context, kind domain.Kind) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Kind == kind {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, compareItems)
	return items, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok || existing.Kind != item.Kind {
		return nil, store.ErrNotFound
	}
	for id, other := range s.items {
		if id != item.ID && other.Identity() == item.Identity() {
			return nil, store.ErrDuplicate
		}
	}

	item.CreatedAt = existing.CreatedAt
	s.items[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, kind domain.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.Kind != kind {
		return store.ErrNotFound
	}

	kept := s.transactions[:0]
	for _, tx := range s.transactions {
		if tx.ItemID != id {
			kept = append(kept, tx)
		}
	}
	s.transactions = kept
	delete(s.items, id)
	return nil
}

func (s *Store) RecordTransaction(_ context.Context, in domain.LedgerInput) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[in.ItemID]
	if !ok || item.Kind != in.Kind {
		return nil, store.ErrNotFound
	}

	tx, next, err := domain.BuildTransaction(item, in)
	if err != nil {
		return nil, err
	}

	item.Stock = next
	s.items[item.ID] = item
	recorded := s.appendLocked(tx)
	return &recorded, nil
}

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LedgerEntry, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if filter.Kind != nil && tx.Kind != *filter.Kind {
			continue
		}
		if !filter.Range.Contains(tx.Date) {
			continue
		}
		item := s.items[tx.ItemID]
		entries = append(entries, domain.LedgerEntry{
			Transaction:       tx,
			ItemName:          item.Name,
			ItemSide:          item.Side,
			ItemPurchasePrice: item.PurchasePrice,
		})
	}

	slices.SortFunc(entries, func(a, b domain.LedgerEntry) int {
		if !a.Date.Equal(b.Date) {
			return b.Date.Compare(a.Date)
		}
		return cmpInt64(b.ID, a.ID)
	})
	return entries, nil
}

func (s *Store) appendLocked(tx domain.Transaction) domain.Transaction {
	s.nextTxID++
	tx.ID = s.nextTxID
	s.transactions = append(s.transactions, tx)
	return tx
}

func compareItems(a, b domain.Item) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Side), string(b.Side)); c != 0 {
		return c
	}
	return cmpInt64(a.ID, b.ID)
}

func cmpInt64(a int64, b int64) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func floatPtr(v float64) *float64 {
	return &v
}
