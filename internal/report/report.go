// Package report renders analytics and the ledger as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"venomshop/backend/internal/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetSummary      = "Summary"
	SheetTopSellers   = "Top Sellers"
	SheetTransactions = "Transactions"

	timestampLayout = "2006-01-02 15:04:05"
)

// Filename is the download name for a workbook covering r.
func Filename(r domain.DateRange) string {
	if r.Unbounded() {
		return "venom-report.xlsx"
	}
	return fmt.Sprintf("venom-report-%s-to-%s.xlsx", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// Build lays out the report and the entries that produced it.
func Build(report domain.AnalyticsReport, entries []domain.LedgerEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetTopSellers, SheetTransactions} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	steps := []func(*excelize.File) error{
		func(f *excelize.File) error { return writeSummary(f, report) },
		func(f *excelize.File) error { return writeTopSellers(f, report) },
		func(f *excelize.File) error { return writeTransactions(f, entries) },
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, report domain.AnalyticsReport, entries []domain.LedgerEntry) error {
	f, err := Build(report, entries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(f *excelize.File, report domain.AnalyticsReport) error {
	rows := [][]any{
		{"From", formatBound(report.Range.From)},
		{"To", formatBound(report.Range.To)},
		{"Cost basis", report.CostBasis},
		{"Loss scope", report.LossScope},
		{},
		{"Metric", "Shop", "Laser", "Combined"},
	}
	metrics := []struct {
		label string
		pick  func(domain.KindAnalytics) any
	}{
		{"Revenue", func(k domain.KindAnalytics) any { return k.Revenue }},
		{"Cost of goods", func(k domain.KindAnalytics) any { return k.COGS }},
		{"Waste cost", func(k domain.KindAnalytics) any { return k.WasteCost }},
		{"Profit", func(k domain.KindAnalytics) any { return k.Profit }},
		{"Loss", func(k domain.KindAnalytics) any { return k.Loss }},
		{"Purchases", func(k domain.KindAnalytics) any { return k.TotalPurchases }},
		{"Sales", func(k domain.KindAnalytics) any { return k.SalesCount }},
		{"Items", func(k domain.KindAnalytics) any { return k.ItemsCount }},
		{"Low stock items", func(k domain.KindAnalytics) any { return k.LowStockCount }},
	}
	for _, m := range metrics {
		rows = append(rows, []any{m.label, m.pick(report.Shop), m.pick(report.Laser), m.pick(report.Combined)})
	}

	for i, values := range rows {
		if err := setRow(f, SheetSummary, i+1, values...); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "A", 18)
}

func writeTopSellers(f *excelize.File, report domain.AnalyticsReport) error {
	if err := setRow(f, SheetTopSellers, 1, "Section", "Rank", "Item", "Net quantity"); err != nil {
		return err
	}
	row := 2
	sections := []struct {
		label   string
		sellers []domain.TopSeller
	}{
		{"Shop", report.Shop.TopSellers},
		{"Laser", report.Laser.TopSellers},
		{"Combined", report.Combined.TopSellers},
	}
	for _, section := range sections {
		for rank, seller := range section.sellers {
			if err := setRow(f, SheetTopSellers, row, section.label, rank+1, seller.Name, seller.NetQuantity); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeTransactions(f *excelize.File, entries []domain.LedgerEntry) error {
	header := []any{"ID", "Date", "Kind", "Type", "Item", "Quantity", "Unit price", "Unit cost", "Total", "Customer", "Phone", "Notes"}
	if err := setRow(f, SheetTransactions, 1, header...); err != nil {
		return err
	}
	for i, e := range entries {
		err := setRow(f, SheetTransactions, i+2,
			e.ID,
			e.Date.UTC().Format(timestampLayout),
			string(e.Kind),
			string(e.Type),
			e.DisplayName(),
			e.Quantity,
			e.UnitPrice,
			e.UnitCost,
			e.TotalAmount,
			e.CustomerName,
			e.CustomerPhone,
			e.Notes,
		)
		if err != nil {
			return err
		}
	}
	return f.SetPanes(SheetTransactions, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.UTC().Format(timestampLayout)
}
