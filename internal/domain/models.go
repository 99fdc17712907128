package domain

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindShopProduct   Kind = "shop_product"
	KindLaserMaterial Kind = "laser_material"
)

// Kinds lists every inventory kind in display order.
var Kinds = []Kind{KindShopProduct, KindLaserMaterial}

func (k Kind) Valid() bool {
	return k == KindShopProduct || k == KindLaserMaterial
}

// WholeUnits reports whether stock and quantities of this kind are counted in whole units.
func (k Kind) WholeUnits() bool {
	return k == KindShopProduct
}

type Side string

const (
	SideNone Side = ""
	SideFace Side = "face"
	SideBack Side = "back"
)

func (s Side) Valid() bool {
	return s == SideFace || s == SideBack
}

type TxType string

const (
	TxPurchase TxType = "purchase"
	TxSale     TxType = "sale"
	TxReturn   TxType = "return"
	TxWaste    TxType = "waste"
)

func (t TxType) Valid() bool {
	switch t {
	case TxPurchase, TxSale, TxReturn, TxWaste:
		return true
	default:
		return false
	}
}

// Outbound reports whether the transaction type removes stock.
func (t TxType) Outbound() bool {
	return t == TxSale || t == TxWaste
}

type Item struct {
	ID            int64     `json:"id"`
	Kind          Kind      `json:"kind"`
	Name          string    `json:"name"`
	Side          Side      `json:"side,omitempty"`
	Supplier      string    `json:"supplier,omitempty"`
	PurchaseDate  time.Time `json:"purchase_date"`
	PurchasePrice float64   `json:"purchase_price"`
	SalePrice     *float64  `json:"sale_price"`
	Stock         float64   `json:"stock"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DisplayName is the label used in rankings and assistant answers.
func (i Item) DisplayName() string {
	return DisplayName(i.Name, i.Side)
}

func DisplayName(name string, side Side) string {
	if side == SideNone {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, side)
}

// Identity is the uniqueness key of a cost lot.
type Identity struct {
	Kind          Kind    `json:"kind"`
	Name          string  `json:"name"`
	Side          Side    `json:"side,omitempty"`
	PurchasePrice float64 `json:"purchase_price"`
}

func (i Item) Identity() Identity {
	return Identity{Kind: i.Kind, Name: i.Name, Side: i.Side, PurchasePrice: i.PurchasePrice}
}

// Matches reports whether term appears in the item's name, side or supplier.
func (i Item) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(i.DisplayName()), term) ||
		strings.Contains(strings.ToLower(i.Supplier), term)
}

type Transaction struct {
	ID            int64     `json:"id"`
	ItemID        int64     `json:"item_id"`
	Kind          Kind      `json:"kind"`
	Type          TxType    `json:"type"`
	Quantity      float64   `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	UnitCost      float64   `json:"unit_cost"`
	TotalAmount   float64   `json:"total_amount"`
	Date          time.Time `json:"date"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// LedgerEntry is a transaction joined with the live attributes of its item.
type LedgerEntry struct {
	Transaction
	ItemName          string  `json:"item_name"`
	ItemSide          Side    `json:"item_side,omitempty"`
	ItemPurchasePrice float64 `json:"item_purchase_price"`
}

func (e LedgerEntry) DisplayName() string {
	return DisplayName(e.ItemName, e.ItemSide)
}

// Matches reports whether term appears, case-insensitively, in the item name,
// customer fields, notes or the formatted date of the entry.
func (e LedgerEntry) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	fields := []string{
		e.DisplayName(),
		e.CustomerName,
		e.CustomerPhone,
		e.Notes,
		e.Date.UTC().Format("2006-01-02 15:04:05"),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

type ItemCreateRequest struct {
	Kind          Kind     `json:"kind"`
	Name          string   `json:"name"`
	Side          Side     `json:"side,omitempty"`
	Supplier      string   `json:"supplier,omitempty"`
	PurchaseDate  string   `json:"purchase_date,omitempty"`
	PurchasePrice float64  `json:"purchase_price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	InitialStock  float64  `json:"initial_stock"`
	Notes         string   `json:"notes,omitempty"`
}

type ItemUpdateRequest struct {
	Name          *string  `json:"name,omitempty"`
	Side          *Side    `json:"side,omitempty"`
	Supplier      *string  `json:"supplier,omitempty"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	Stock         *float64 `json:"stock,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

type RestockRequest struct {
	Kind          Kind     `json:"kind"`
	Name          string   `json:"name"`
	Side          Side     `json:"side,omitempty"`
	Supplier      string   `json:"supplier,omitempty"`
	PurchaseDate  string   `json:"purchase_date,omitempty"`
	PurchasePrice float64  `json:"purchase_price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	Quantity      float64  `json:"quantity"`
	Notes         string   `json:"notes,omitempty"`
}

type RestockResponse struct {
	Item        Item         `json:"item"`
	Created     bool         `json:"created"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type TransactionRequest struct {
	Kind          Kind       `json:"kind"`
	Type          TxType     `json:"type"`
	ItemID        int64      `json:"item_id"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     *float64   `json:"unit_price,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

type TransactionFilter struct {
	Kind  *Kind
	Range DateRange
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

func (r DateRange) Valid() bool {
	return r.From.IsZero() || r.To.IsZero() || !r.To.Before(r.From)
}

func (r DateRange) Unbounded() bool {
	return r.From.IsZero() && r.To.IsZero()
}
