package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"venomshop/backend/internal/domain"
)

func sampleReport() (domain.AnalyticsReport, []domain.LedgerEntry) {
	r := domain.DateRange{
		From: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC),
	}
	report := domain.AnalyticsReport{
		Range:     r,
		CostBasis: "live",
		LossScope: "range",
		Shop: domain.KindAnalytics{
			Kind:       domain.KindShopProduct,
			Revenue:    75,
			Profit:     25,
			SalesCount: 1,
			TopSellers: []domain.TopSeller{{Name: "Phone Case", NetQuantity: 5}},
		},
		Laser: domain.KindAnalytics{
			Kind:       domain.KindLaserMaterial,
			Revenue:    13.5,
			TopSellers: []domain.TopSeller{{Name: "Acrylic 3mm (back)", NetQuantity: 1.5}},
		},
		Combined: domain.KindAnalytics{Revenue: 88.5},
	}
	entries := []domain.LedgerEntry{
		{
			Transaction: domain.Transaction{
				ID: 7, Kind: domain.KindLaserMaterial, Type: domain.TxSale, Quantity: 1.5, UnitPrice: 9, TotalAmount: 13.5,
				Date: time.Date(2025, time.March, 3, 14, 5, 0, 0, time.UTC), CustomerName: "Omar",
			},
			ItemName: "Acrylic 3mm",
			ItemSide: domain.SideBack,
		},
	}
	return report, entries
}

func TestWriteProducesThreeSheets(t *testing.T) {
	report, entries := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetTopSellers, SheetTransactions}, f.GetSheetList())

	revenue, err := f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "75", revenue)
	combined, err := f.GetCellValue(SheetSummary, "D7")
	require.NoError(t, err)
	assert.Equal(t, "88.5", combined)

	sellers, err := f.GetRows(SheetTopSellers)
	require.NoError(t, err)
	require.Len(t, sellers, 3)
	assert.Equal(t, "Acrylic 3mm (back)", sellers[2][2])

	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-03-03 14:05:00", rows[1][1])
	assert.Equal(t, "Acrylic 3mm (back)", rows[1][4])
	assert.Equal(t, "Omar", rows[1][9])
}

func TestFilename(t *testing.T) {
	report, _ := sampleReport()
	assert.Equal(t, "venom-report-2025-03-01-to-2025-03-31.xlsx", Filename(report.Range))
	assert.Equal(t, "venom-report.xlsx", Filename(domain.DateRange{}))
}
