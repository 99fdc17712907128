// Package analytics derives revenue, cost and profit figures from the transaction log.
// Every function here is pure: it reads the entries and items it is given and never
// touches storage.
package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"venomshop/backend/internal/domain"
)

type CostBasis string

const (
	// CostBasisLive prices cost of goods at the item's current purchase price.
	CostBasisLive CostBasis = "live"
	// CostBasisSnapshot prices cost of goods at the unit cost frozen on the transaction.
	CostBasisSnapshot CostBasis = "snapshot"
)

type LossScope string

const (
	LossScopeRange   LossScope = "range"
	LossScopeAllTime LossScope = "all_time"
)

func ParseCostBasis(raw string) (CostBasis, error) {
	switch CostBasis(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CostBasisLive:
		return CostBasisLive, nil
	case CostBasisSnapshot:
		return CostBasisSnapshot, nil
	default:
		return "", fmt.Errorf("unknown cost basis %q", raw)
	}
}

func ParseLossScope(raw string) (LossScope, error) {
	switch LossScope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LossScopeRange:
		return LossScopeRange, nil
	case LossScopeAllTime, "all-time", "alltime":
		return LossScopeAllTime, nil
	default:
		return "", fmt.Errorf("unknown loss scope %q", raw)
	}
}

type Options struct {
	CostBasis         CostBasis
	LossScope         LossScope
	LowStockThreshold float64
	TopLimit          int
}

func DefaultOptions() Options {
	return Options{
		CostBasis:         CostBasisLive,
		LossScope:         LossScopeRange,
		LowStockThreshold: 10,
		TopLimit:          5,
	}
}

type Aggregator struct {
	opts Options
}

func New(opts Options) *Aggregator {
	defaults := DefaultOptions()
	if opts.CostBasis == "" {
		opts.CostBasis = defaults.CostBasis
	}
	if opts.LossScope == "" {
		opts.LossScope = defaults.LossScope
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = defaults.LowStockThreshold
	}
	if opts.TopLimit < 1 {
		opts.TopLimit = defaults.TopLimit
	}
	return &Aggregator{opts: opts}
}

func (a *Aggregator) Options() Options {
	return a.opts
}

func (a *Aggregator) unitCost(e domain.LedgerEntry) decimal.Decimal {
	if a.opts.CostBasis == CostBasisSnapshot {
		return decimal.NewFromFloat(e.UnitCost)
	}
	return decimal.NewFromFloat(e.ItemPurchasePrice)
}

func inScope(e domain.LedgerEntry, kind domain.Kind, r domain.DateRange) bool {
	return e.Kind == kind && r.Contains(e.Date)
}

// Revenue is sales minus returns at their frozen transaction amounts.
func (a *Aggregator) Revenue(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	total := decimal.Zero
	for _, e := range entries {
		if !inScope(e, kind, r) {
			continue
		}
		switch e.Type {
		case domain.TxSale:
			total = total.Add(decimal.NewFromFloat(e.TotalAmount))
		case domain.TxReturn:
			total = total.Sub(decimal.NewFromFloat(e.TotalAmount))
		}
	}
	return total.InexactFloat64()
}

func (a *Aggregator) COGS(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	total := decimal.Zero
	for _, e := range entries {
		if !inScope(e, kind, r) {
			continue
		}
		cost := decimal.NewFromFloat(e.Quantity).Mul(a.unitCost(e))
		switch e.Type {
		case domain.TxSale:
			total = total.Add(cost)
		case domain.TxReturn:
			total = total.Sub(cost)
		}
	}
	return total.InexactFloat64()
}

func (a *Aggregator) WasteCost(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	total := decimal.Zero
	for _, e := range entries {
		if inScope(e, kind, r) && e.Type == domain.TxWaste {
			total = total.Add(decimal.NewFromFloat(e.Quantity).Mul(a.unitCost(e)))
		}
	}
	return total.InexactFloat64()
}

func (a *Aggregator) Profit(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	revenue := decimal.NewFromFloat(a.Revenue(entries, kind, r))
	cogs := decimal.NewFromFloat(a.COGS(entries, kind, r))
	waste := decimal.NewFromFloat(a.WasteCost(entries, kind, r))
	return revenue.Sub(cogs).Sub(waste).InexactFloat64()
}

// Loss sums what was given up on sales priced under cost. Under LossScopeAllTime the
// range is ignored.
func (a *Aggregator) Loss(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	if a.opts.LossScope == LossScopeAllTime {
		r = domain.DateRange{}
	}
	total := decimal.Zero
	for _, e := range entries {
		if !inScope(e, kind, r) || e.Type != domain.TxSale {
			continue
		}
		cost := a.unitCost(e)
		price := decimal.NewFromFloat(e.UnitPrice)
		if price.LessThan(cost) {
			total = total.Add(decimal.NewFromFloat(e.Quantity).Mul(cost.Sub(price)))
		}
	}
	return total.InexactFloat64()
}

func (a *Aggregator) TotalPurchases(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) float64 {
	total := decimal.Zero
	for _, e := range entries {
		if inScope(e, kind, r) && e.Type == domain.TxPurchase {
			total = total.Add(decimal.NewFromFloat(e.TotalAmount))
		}
	}
	return total.InexactFloat64()
}

func (a *Aggregator) SalesCount(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) int {
	count := 0
	for _, e := range entries {
		if inScope(e, kind, r) && e.Type == domain.TxSale {
			count++
		}
	}
	return count
}

// TopSellers ranks display names by net quantity sold (sales minus returns).
func (a *Aggregator) TopSellers(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) []domain.TopSeller {
	net := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if !inScope(e, kind, r) {
			continue
		}
		q := decimal.NewFromFloat(e.Quantity)
		name := e.DisplayName()
		switch e.Type {
		case domain.TxSale:
			net[name] = net[name].Add(q)
		case domain.TxReturn:
			net[name] = net[name].Sub(q)
		}
	}

	sellers := make([]domain.TopSeller, 0, len(net))
	for name, q := range net {
		if q.IsPositive() {
			sellers = append(sellers, domain.TopSeller{Name: name, NetQuantity: q.InexactFloat64()})
		}
	}
	return rankSellers(sellers, a.opts.TopLimit)
}

func rankSellers(sellers []domain.TopSeller, limit int) []domain.TopSeller {
	slices.SortFunc(sellers, func(x, y domain.TopSeller) int {
		if x.NetQuantity != y.NetQuantity {
			if x.NetQuantity > y.NetQuantity {
				return -1
			}
			return 1
		}
		return strings.Compare(x.Name, y.Name)
	})
	if len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers
}

// LowStock returns items below the threshold, emptiest first.
func (a *Aggregator) LowStock(items []domain.Item) []domain.Item {
	low := make([]domain.Item, 0)
	for _, item := range items {
		if item.Stock < a.opts.LowStockThreshold {
			low = append(low, item)
		}
	}
	slices.SortFunc(low, func(x, y domain.Item) int {
		if x.Stock != y.Stock {
			if x.Stock < y.Stock {
				return -1
			}
			return 1
		}
		if c := strings.Compare(x.DisplayName(), y.DisplayName()); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return low
}

type dailyTotals struct {
	revenue decimal.Decimal
	cogs    decimal.Decimal
	waste   decimal.Decimal
}

func (a *Aggregator) Daily(entries []domain.LedgerEntry, kind domain.Kind, r domain.DateRange) []domain.DailyBreakdown {
	byDay := make(map[string]*dailyTotals)
	for _, e := range entries {
		if !inScope(e, kind, r) || e.Type == domain.TxPurchase {
			continue
		}
		key := e.Date.UTC().Format("2006-01-02")
		totals, ok := byDay[key]
		if !ok {
			totals = &dailyTotals{}
			byDay[key] = totals
		}
		cost := decimal.NewFromFloat(e.Quantity).Mul(a.unitCost(e))
		amount := decimal.NewFromFloat(e.TotalAmount)
		switch e.Type {
		case domain.TxSale:
			totals.revenue = totals.revenue.Add(amount)
			totals.cogs = totals.cogs.Add(cost)
		case domain.TxReturn:
			totals.revenue = totals.revenue.Sub(amount)
			totals.cogs = totals.cogs.Sub(cost)
		case domain.TxWaste:
			totals.waste = totals.waste.Add(cost)
		}
	}
	return flattenDaily(byDay)
}

func flattenDaily(byDay map[string]*dailyTotals) []domain.DailyBreakdown {
	days := make([]domain.DailyBreakdown, 0, len(byDay))
	for key, totals := range byDay {
		days = append(days, domain.DailyBreakdown{
			Date:      key,
			Revenue:   totals.revenue.InexactFloat64(),
			COGS:      totals.cogs.InexactFloat64(),
			WasteCost: totals.waste.InexactFloat64(),
			Profit:    totals.revenue.Sub(totals.cogs).Sub(totals.waste).InexactFloat64(),
		})
	}
	slices.SortFunc(days, func(x, y domain.DailyBreakdown) int {
		return strings.Compare(x.Date, y.Date)
	})
	return days
}

// Summarize computes every per-kind figure. entries may span all kinds and, when the
// loss scope is all_time, all dates.
func (a *Aggregator) Summarize(kind domain.Kind, r domain.DateRange, entries []domain.LedgerEntry, items []domain.Item) domain.KindAnalytics {
	low := a.LowStock(items)
	return domain.KindAnalytics{
		Kind:           kind,
		Revenue:        a.Revenue(entries, kind, r),
		COGS:           a.COGS(entries, kind, r),
		WasteCost:      a.WasteCost(entries, kind, r),
		Profit:         a.Profit(entries, kind, r),
		Loss:           a.Loss(entries, kind, r),
		TotalPurchases: a.TotalPurchases(entries, kind, r),
		SalesCount:     a.SalesCount(entries, kind, r),
		ItemsCount:     len(items),
		TopSellers:     a.TopSellers(entries, kind, r),
		LowStock:       low,
		LowStockCount:  len(low),
		Daily:          a.Daily(entries, kind, r),
	}
}

// Combine merges per-kind figures into the store-wide view.
func (a *Aggregator) Combine(parts ...domain.KindAnalytics) domain.KindAnalytics {
	var revenue, cogs, waste, profit, loss, purchases decimal.Decimal
	combined := domain.KindAnalytics{
		TopSellers: make([]domain.TopSeller, 0),
		LowStock:   make([]domain.Item, 0),
	}
	byDay := make(map[string]*dailyTotals)
	for _, part := range parts {
		revenue = revenue.Add(decimal.NewFromFloat(part.Revenue))
		cogs = cogs.Add(decimal.NewFromFloat(part.COGS))
		waste = waste.Add(decimal.NewFromFloat(part.WasteCost))
		profit = profit.Add(decimal.NewFromFloat(part.Profit))
		loss = loss.Add(decimal.NewFromFloat(part.Loss))
		purchases = purchases.Add(decimal.NewFromFloat(part.TotalPurchases))
		combined.SalesCount += part.SalesCount
		combined.ItemsCount += part.ItemsCount
		combined.LowStockCount += part.LowStockCount
		combined.TopSellers = append(combined.TopSellers, part.TopSellers...)
		combined.LowStock = append(combined.LowStock, part.LowStock...)
		for _, d := range part.Daily {
			totals, ok := byDay[d.Date]
			if !ok {
				totals = &dailyTotals{}
				byDay[d.Date] = totals
			}
			totals.revenue = totals.revenue.Add(decimal.NewFromFloat(d.Revenue))
			totals.cogs = totals.cogs.Add(decimal.NewFromFloat(d.COGS))
			totals.waste = totals.waste.Add(decimal.NewFromFloat(d.WasteCost))
		}
	}
	combined.Revenue = revenue.InexactFloat64()
	combined.COGS = cogs.InexactFloat64()
	combined.WasteCost = waste.InexactFloat64()
	combined.Profit = profit.InexactFloat64()
	combined.Loss = loss.InexactFloat64()
	combined.TotalPurchases = purchases.InexactFloat64()
	combined.TopSellers = rankSellers(combined.TopSellers, a.opts.TopLimit)
	combined.Daily = flattenDaily(byDay)
	return combined
}

// Report builds the full dual-inventory view for a range.
func (a *Aggregator) Report(r domain.DateRange, entries []domain.LedgerEntry, shopItems, laserItems []domain.Item) domain.AnalyticsReport {
	shop := a.Summarize(domain.KindShopProduct, r, entries, shopItems)
	laser := a.Summarize(domain.KindLaserMaterial, r, entries, laserItems)
	return domain.AnalyticsReport{
		Range:     r,
		CostBasis: string(a.opts.CostBasis),
		LossScope: string(a.opts.LossScope),
		Shop:      shop,
		Laser:     laser,
		Combined:  a.Combine(shop, laser),
	}
}
