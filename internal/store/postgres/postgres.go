package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	side TEXT NOT NULL DEFAULT '',
	supplier TEXT,
	purchase_date DATE,
	purchase_price DOUBLE PRECISION NOT NULL,
	sale_price DOUBLE PRECISION,
	stock DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (stock >= 0),
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (kind, name, side, purchase_price)
);
CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	type TEXT NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL,
	unit_cost DOUBLE PRECISION NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	customer_name TEXT,
	customer_phone TEXT,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS transactions_kind_date_idx ON transactions (kind, date DESC);
`

const itemColumns = `id, kind, name, side, COALESCE(supplier,''), purchase_date, purchase_price, sale_price, stock, COALESCE(notes,''), created_at`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	var kind, side string
	var purchaseDate sql.NullTime
	var salePrice sql.NullFloat64
	if err := row.Scan(&item.ID, &kind, &item.Name, &side, &item.Supplier, &purchaseDate, &item.PurchasePrice, &salePrice, &item.Stock, &item.Notes, &item.CreatedAt); err != nil {
		return item, err
	}
	item.Kind = domain.Kind(kind)
	item.Side = domain.Side(side)
	if purchaseDate.Valid {
		d := purchaseDate.Time.UTC()
		item.PurchaseDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	if salePrice.Valid {
		v := salePrice.Float64
		item.SalePrice = &v
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item, seed *domain.LedgerInput) (*domain.Item, error) {
	if !item.Kind.Valid() || strings.TrimSpace(item.Name) == "" {
		return nil, store.ErrInvalidTransaction
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, store.Storage(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	created, err := scanItem(pgTx.QueryRowContext(ctx, `
		INSERT INTO items (kind, name, side, supplier, purchase_date, purchase_price, sale_price, stock, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,now())
		RETURNING `+itemColumns,
		string(item.Kind), item.Name, string(item.Side), nullIfEmpty(item.Supplier), nullDate(item.PurchaseDate),
		item.PurchasePrice, nullFloat(item.SalePrice), nullIfEmpty(item.Notes)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, store.Storage(err)
	}

	if seed != nil {
		tx, next, err := store.Seed(created, seed)
		if err != nil {
			return nil, err
		}
		if _, err := insertTransaction(ctx, pgTx, tx); err != nil {
			return nil, store.Storage(err)
		}
		if err := updateStock(ctx, pgTx, created.ID, next); err != nil {
			return nil, store.Storage(err)
		}
		created.Stock = next
	}

	if err := pgTx.Commit(); err != nil {
		return nil, store.Storage(err)
	}
	return &created, nil
}

func (s *Store) GetItem(ctx context.Context, kind domain.Kind, id int64) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1 AND kind = $2
	`, id, string(kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Storage(err)
	}
	return &item, nil
}

func (s *Store) FindItemByIdentity(ctx context.Context, identity domain.Identity) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE kind = $1 AND name = $2 AND side = $3 AND purchase_price = $4
	`, string(identity.Kind), identity.Name, string(identity.Side), identity.PurchasePrice))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Storage(err)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE kind = $1
		ORDER BY name, side, id
	`, string(kind))
	if err != nil {
		return nil, store.Storage(err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, store.Storage(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Storage(err)
	}
	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	updated, err := scanItem(s.db.QueryRowContext(ctx, `
		UPDATE items
		SET name = $3, side = $4, supplier = $5, purchase_date = $6, purchase_price = $7,
			sale_price = $8, stock = $9, notes = $10
		WHERE id = $1 AND kind = $2
		RETURNING `+itemColumns,
		item.ID, string(item.Kind), item.Name, string(item.Side), nullIfEmpty(item.Supplier), nullDate(item.PurchaseDate),
		item.PurchasePrice, nullFloat(item.SalePrice), item.Stock, nullIfEmpty(item.Notes)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, store.Storage(err)
	}
	return &updated, nil
}

func (s *Store) DeleteItem(ctx context.Context, kind domain.Kind, id int64) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return store.Storage(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	res, err := pgTx.ExecContext(ctx, `DELETE FROM items WHERE id = $1 AND kind = $2`, id, string(kind))
	if err != nil {
		return store.Storage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return store.Storage(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM transactions WHERE item_id = $1`, id); err != nil {
		return store.Storage(err)
	}
	if err := pgTx.Commit(); err != nil {
		return store.Storage(err)
	}
	return nil
}

func (s *Store) RecordTransaction(ctx context.Context, in domain.LedgerInput) (*domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, store.Storage(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	item, err := scanItem(pgTx.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1 AND kind = $2
		FOR UPDATE
	`, in.ItemID, string(in.Kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, store.Storage(err)
	}

	tx, next, err := domain.BuildTransaction(item, in)
	if err != nil {
		return nil, err
	}

	tx.ID, err = insertTransaction(ctx, pgTx, tx)
	if err != nil {
		return nil, store.Storage(err)
	}
	if err := updateStock(ctx, pgTx, item.ID, next); err != nil {
		return nil, store.Storage(err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, store.Storage(err)
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.LedgerEntry, error) {
	var kind string
	if filter.Kind != nil {
		kind = string(*filter.Kind)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.item_id, t.kind, t.type, t.quantity, t.unit_price, t.unit_cost, t.total_amount,
			t.date, COALESCE(t.customer_name,''), COALESCE(t.customer_phone,''), COALESCE(t.notes,''),
			i.name, i.side, i.purchase_price
		FROM transactions t
		JOIN items i ON i.id = t.item_id
		WHERE ($1 = '' OR t.kind = $1)
			AND ($2::timestamptz IS NULL OR t.date >= $2)
			AND ($3::timestamptz IS NULL OR t.date <= $3)
		ORDER BY t.date DESC, t.id DESC
	`, kind, nullTime(filter.Range.From), nullTime(filter.Range.To))
	if err != nil {
		return nil, store.Storage(err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, 128)
	for rows.Next() {
		var entry domain.LedgerEntry
		var txKind, txType, side string
		if err := rows.Scan(
			&entry.ID,
			&entry.ItemID,
			&txKind,
			&txType,
			&entry.Quantity,
			&entry.UnitPrice,
			&entry.UnitCost,
			&entry.TotalAmount,
			&entry.Date,
			&entry.CustomerName,
			&entry.CustomerPhone,
			&entry.Notes,
			&entry.ItemName,
			&side,
			&entry.ItemPurchasePrice,
		); err != nil {
			return nil, store.Storage(err)
		}
		entry.Kind = domain.Kind(txKind)
		entry.Type = domain.TxType(txType)
		entry.ItemSide = domain.Side(side)
		entry.Date = entry.Date.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Storage(err)
	}
	return entries, nil
}

func insertTransaction(ctx context.Context, pgTx *sql.Tx, tx domain.Transaction) (int64, error) {
	var id int64
	err := pgTx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			item_id, kind, type, quantity, unit_price, unit_cost, total_amount,
			date, customer_name, customer_phone, notes
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, tx.ItemID, string(tx.Kind), string(tx.Type), tx.Quantity, tx.UnitPrice, tx.UnitCost, tx.TotalAmount,
		tx.Date, nullIfEmpty(tx.CustomerName), nullIfEmpty(tx.CustomerPhone), nullIfEmpty(tx.Notes)).Scan(&id)
	return id, err
}

func updateStock(ctx context.Context, pgTx *sql.Tx, itemID int64, stock float64) error {
	_, err := pgTx.ExecContext(ctx, `UPDATE items SET stock = $2 WHERE id = $1`, itemID, stock)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDate(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	u := val.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val.UTC()
}
