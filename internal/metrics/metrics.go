package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/store"
)

const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonInvalid           = "invalid"
	ReasonNotFound          = "not_found"
	ReasonStorage           = "storage"
	ReasonUnknown           = "unknown"
)

// Ledger records stock mutation outcomes. A nil *Ledger is a valid no-op recorder.
type Ledger struct {
	transactions *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	lowStock     *prometheus.GaugeVec
}

func New(registerer prometheus.Registerer) *Ledger {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Ledger{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venom_ledger_transactions_total",
			Help: "Committed ledger transactions by inventory kind and type.",
		}, []string{"kind", "type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venom_ledger_rejections_total",
			Help: "Rejected stock mutations by inventory kind and reason.",
		}, []string{"kind", "reason"}),
		lowStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venom_low_stock_items",
			Help: "Items currently below the low-stock threshold.",
		}, []string{"kind"}),
	}
	registerer.MustRegister(m.transactions, m.rejections, m.lowStock)
	return m
}

func (m *Ledger) Committed(kind domain.Kind, txType domain.TxType) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(string(kind), string(txType)).Inc()
}

func (m *Ledger) Rejected(kind domain.Kind, err error) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(kind), Reason(err)).Inc()
}

func (m *Ledger) SetLowStock(kind domain.Kind, count int) {
	if m == nil {
		return
	}
	m.lowStock.WithLabelValues(string(kind)).Set(float64(count))
}

// Reason classifies a ledger error into a bounded label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, store.ErrInvalidQuantity):
		return ReasonInvalidQuantity
	case errors.Is(err, store.ErrInvalidTransaction):
		return ReasonInvalid
	case errors.Is(err, store.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, store.ErrStorage):
		return ReasonStorage
	default:
		return ReasonUnknown
	}
}

func (m *Ledger) Transactions() *prometheus.CounterVec { return m.transactions }

func (m *Ledger) Rejections() *prometheus.CounterVec { return m.rejections }

func (m *Ledger) LowStock() *prometheus.GaugeVec { return m.lowStock }
