// Package sqlite is the default embedded repository, backed by gorm over a pure-Go SQLite driver.
package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
)

const dateLayout = "2006-01-02"

type itemRow struct {
	ID            int64    `gorm:"primaryKey;autoIncrement"`
	Kind          string   `gorm:"not null;uniqueIndex:idx_items_identity,priority:1"`
	Name          string   `gorm:"not null;uniqueIndex:idx_items_identity,priority:2"`
	Side          string   `gorm:"not null;uniqueIndex:idx_items_identity,priority:3"`
	Supplier      string   `gorm:"column:supplier"`
	PurchaseDate  string   `gorm:"column:purchase_date"`
	PurchasePrice float64  `gorm:"not null;uniqueIndex:idx_items_identity,priority:4"`
	SalePrice     *float64 `gorm:"column:sale_price"`
	Stock         float64  `gorm:"not null"`
	Notes         string   `gorm:"column:notes"`
	CreatedAt     int64    `gorm:"autoCreateTime"`
}

func (itemRow) TableName() string { return "items" }

type transactionRow struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	ItemID        int64   `gorm:"not null;index"`
	Kind          string  `gorm:"not null;index:idx_transactions_kind_date,priority:1"`
	Type          string  `gorm:"not null"`
	Quantity      float64 `gorm:"not null"`
	UnitPrice     float64 `gorm:"not null"`
	UnitCost      float64 `gorm:"not null"`
	TotalAmount   float64 `gorm:"not null"`
	Date          int64   `gorm:"not null;index:idx_transactions_kind_date,priority:2"`
	CustomerName  string
	CustomerPhone string
	Notes         string
}

func (transactionRow) TableName() string { return "transactions" }

type ledgerRow struct {
	transactionRow
	ItemName          string
	ItemSide          string
	ItemPurchasePrice float64
}

type Store struct {
	db *gorm.DB
}

// New opens (creating if needed) the database file at path and migrates the schema.
func New(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&itemRow{}, &transactionRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item, seed *domain.LedgerInput) (*domain.Item, error) {
	if !item.Kind.Valid() || strings.TrimSpace(item.Name) == "" {
		return nil, store.ErrInvalidTransaction
	}

	row := toItemRow(item)
	row.ID = 0
	row.Stock = 0
	row.CreatedAt = time.Now().UTC().Unix()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return store.ErrDuplicate
			}
			return store.Storage(err)
		}
		if seed == nil {
			return nil
		}

		seedTx, next, err := store.Seed(fromItemRow(row), seed)
		if err != nil {
			return err
		}
		txRow := toTransactionRow(seedTx)
		if err := tx.Create(&txRow).Error; err != nil {
			return store.Storage(err)
		}
		if err := tx.Model(&itemRow{}).Where("id = ?", row.ID).Update("stock", next).Error; err != nil {
			return store.Storage(err)
		}
		row.Stock = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := fromItemRow(row)
	return &created, nil
}

func (s *Store) GetItem(ctx context.Context, kind domain.Kind, id int64) (*domain.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Where("id = ? AND kind = ?", id, string(kind)).Take(&row).Error
	if err != nil {
		return nil, notFoundOrStorage(err)
	}
	item := fromItemRow(row)
	return &item, nil
}

func (s *Store) FindItemByIdentity(ctx context.Context, identity domain.Identity) (*domain.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND name = ? AND side = ? AND purchase_price = ?", string(identity.Kind), identity.Name, string(identity.Side), identity.PurchasePrice).
		Take(&row).Error
	if err != nil {
		return nil, notFoundOrStorage(err)
	}
	item := fromItemRow(row)
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	var rows []itemRow
	err := s.db.WithContext(ctx).Where("kind = ?", string(kind)).Order("name, side, id").Find(&rows).Error
	if err != nil {
		return nil, store.Storage(err)
	}
	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromItemRow(row))
	}
	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	row := toItemRow(item)
	var updated itemRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&itemRow{}).
			Where("id = ? AND kind = ?", row.ID, row.Kind).
			Updates(map[string]any{
				"name":           row.Name,
				"side":           row.Side,
				"supplier":       row.Supplier,
				"purchase_date":  row.PurchaseDate,
				"purchase_price": row.PurchasePrice,
				"sale_price":     row.SalePrice,
				"stock":          row.Stock,
				"notes":          row.Notes,
			})
		if res.Error != nil {
			if isDuplicateKeyErr(res.Error) {
				return store.ErrDuplicate
			}
			return store.Storage(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Where("id = ?", row.ID).Take(&updated).Error; err != nil {
			return store.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := fromItemRow(updated)
	return &result, nil
}

func (s *Store) DeleteItem(ctx context.Context, kind domain.Kind, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND kind = ?", id, string(kind)).Delete(&itemRow{})
		if res.Error != nil {
			return store.Storage(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Where("item_id = ?", id).Delete(&transactionRow{}).Error; err != nil {
			return store.Storage(err)
		}
		return nil
	})
}

func (s *Store) RecordTransaction(ctx context.Context, in domain.LedgerInput) (*domain.Transaction, error) {
	var recorded domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row itemRow
		if err := tx.Where("id = ? AND kind = ?", in.ItemID, string(in.Kind)).Take(&row).Error; err != nil {
			return notFoundOrStorage(err)
		}

		built, next, err := domain.BuildTransaction(fromItemRow(row), in)
		if err != nil {
			return err
		}

		txRow := toTransactionRow(built)
		if err := tx.Create(&txRow).Error; err != nil {
			return store.Storage(err)
		}
		if err := tx.Model(&itemRow{}).Where("id = ?", row.ID).Update("stock", next).Error; err != nil {
			return store.Storage(err)
		}
		built.ID = txRow.ID
		recorded = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recorded, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.LedgerEntry, error) {
	query := s.db.WithContext(ctx).
		Table("transactions AS t").
		Select("t.*, i.name AS item_name, i.side AS item_side, i.purchase_price AS item_purchase_price").
		Joins("JOIN items AS i ON i.id = t.item_id")
	if filter.Kind != nil {
		query = query.Where("t.kind = ?", string(*filter.Kind))
	}
	if !filter.Range.From.IsZero() {
		query = query.Where("t.date >= ?", ceilUnix(filter.Range.From))
	}
	if !filter.Range.To.IsZero() {
		query = query.Where("t.date <= ?", filter.Range.To.Unix())
	}

	var rows []ledgerRow
	if err := query.Order("t.date DESC, t.id DESC").Scan(&rows).Error; err != nil {
		return nil, store.Storage(err)
	}

	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LedgerEntry{
			Transaction:       fromTransactionRow(row.transactionRow),
			ItemName:          row.ItemName,
			ItemSide:          domain.Side(row.ItemSide),
			ItemPurchasePrice: row.ItemPurchasePrice,
		})
	}
	return entries, nil
}

func toItemRow(item domain.Item) itemRow {
	row := itemRow{
		ID:            item.ID,
		Kind:          string(item.Kind),
		Name:          item.Name,
		Side:          string(item.Side),
		Supplier:      item.Supplier,
		PurchasePrice: item.PurchasePrice,
		SalePrice:     item.SalePrice,
		Stock:         item.Stock,
		Notes:         item.Notes,
	}
	if !item.PurchaseDate.IsZero() {
		row.PurchaseDate = item.PurchaseDate.UTC().Format(dateLayout)
	}
	if !item.CreatedAt.IsZero() {
		row.CreatedAt = item.CreatedAt.UTC().Unix()
	}
	return row
}

func fromItemRow(row itemRow) domain.Item {
	item := domain.Item{
		ID:            row.ID,
		Kind:          domain.Kind(row.Kind),
		Name:          row.Name,
		Side:          domain.Side(row.Side),
		Supplier:      row.Supplier,
		PurchasePrice: row.PurchasePrice,
		SalePrice:     row.SalePrice,
		Stock:         row.Stock,
		Notes:         row.Notes,
		CreatedAt:     time.Unix(row.CreatedAt, 0).UTC(),
	}
	if row.PurchaseDate != "" {
		if d, err := time.Parse(dateLayout, row.PurchaseDate); err == nil {
			item.PurchaseDate = d
		}
	}
	return item
}

func toTransactionRow(tx domain.Transaction) transactionRow {
	return transactionRow{
		ID:            tx.ID,
		ItemID:        tx.ItemID,
		Kind:          string(tx.Kind),
		Type:          string(tx.Type),
		Quantity:      tx.Quantity,
		UnitPrice:     tx.UnitPrice,
		UnitCost:      tx.UnitCost,
		TotalAmount:   tx.TotalAmount,
		Date:          tx.Date.Unix(),
		CustomerName:  tx.CustomerName,
		CustomerPhone: tx.CustomerPhone,
		Notes:         tx.Notes,
	}
}

func fromTransactionRow(row transactionRow) domain.Transaction {
	return domain.Transaction{
		ID:            row.ID,
		ItemID:        row.ItemID,
		Kind:          domain.Kind(row.Kind),
		Type:          domain.TxType(row.Type),
		Quantity:      row.Quantity,
		UnitPrice:     row.UnitPrice,
		UnitCost:      row.UnitCost,
		TotalAmount:   row.TotalAmount,
		Date:          time.Unix(row.Date, 0).UTC(),
		CustomerName:  row.CustomerName,
		CustomerPhone: row.CustomerPhone,
		Notes:         row.Notes,
	}
}

// ceilUnix rounds up so a sub-second lower bound never admits the preceding second.
func ceilUnix(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}

func notFoundOrStorage(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return store.Storage(err)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
