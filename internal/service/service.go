package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"venomshop/backend/internal/analytics"
	"venomshop/backend/internal/assistant"
	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/metrics"
	"venomshop/backend/internal/settings"
	"venomshop/backend/internal/store"
)

// recentEntries bounds how much of the ledger is handed to the assistant.
const recentEntries = 50

type Service struct {
	repo       store.Repository
	aggregator *analytics.Aggregator
	ranges     settings.RangeStore
	assistant  *assistant.Engine
	metrics    *metrics.Ledger
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	repo store.Repository,
	aggregator *analytics.Aggregator,
	ranges settings.RangeStore,
	assistantEngine *assistant.Engine,
	recorder *metrics.Ledger,
	logger *zap.Logger,
) *Service {
	if aggregator == nil {
		aggregator = analytics.New(analytics.DefaultOptions())
	}
	if ranges == nil {
		ranges = &settings.MemoryStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if assistantEngine == nil {
		local := assistant.LocalResponder{LowStockThreshold: aggregator.Options().LowStockThreshold}
		assistantEngine = assistant.NewEngine(nil, local, nil, 0, logger)
	}

	return &Service{
		repo:       repo,
		aggregator: aggregator,
		ranges:     ranges,
		assistant:  assistantEngine,
		metrics:    recorder,
		logger:     logger,
		now:        time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidTransaction, fmt.Sprintf(format, args...))
}

func validKind(kind domain.Kind) error {
	if !kind.Valid() {
		return invalid("unknown inventory kind %q", kind)
	}
	return nil
}

// normalizeSide enforces that laser materials carry a face/back side and shop products none.
func normalizeSide(kind domain.Kind, side domain.Side) (domain.Side, error) {
	side = domain.Side(strings.ToLower(strings.TrimSpace(string(side))))
	if kind == domain.KindShopProduct {
		if side != domain.SideNone {
			return "", invalid("shop products have no side")
		}
		return domain.SideNone, nil
	}
	if !side.Valid() {
		return "", invalid("laser material side must be face or back")
	}
	return side, nil
}

func validatePrices(purchase float64, sale *float64) error {
	if purchase < 0 {
		return invalid("purchase price must not be negative")
	}
	if sale != nil && *sale < 0 {
		return invalid("sale price must not be negative")
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, kind domain.Kind, req domain.ItemCreateRequest) (domain.Item, error) {
	if err := validKind(kind); err != nil {
		return domain.Item{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Item{}, invalid("name is required")
	}
	side, err := normalizeSide(kind, req.Side)
	if err != nil {
		return domain.Item{}, err
	}
	if err := validatePrices(req.PurchasePrice, req.SalePrice); err != nil {
		return domain.Item{}, err
	}
	if req.InitialStock < 0 {
		return domain.Item{}, fmt.Errorf("%w: initial stock must not be negative", store.ErrInvalidQuantity)
	}
	if req.InitialStock > 0 {
		if err := domain.ValidateQuantity(kind, req.InitialStock); err != nil {
			return domain.Item{}, err
		}
	}
	purchaseDate, err := domain.ParseDate(req.PurchaseDate, false)
	if err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{
		Kind:          kind,
		Name:          name,
		Side:          side,
		Supplier:      strings.TrimSpace(req.Supplier),
		PurchaseDate:  domain.StartOfDay(purchaseDate),
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Notes:         strings.TrimSpace(req.Notes),
	}

	seedAt := purchaseDate
	if seedAt.IsZero() {
		seedAt = s.now()
	}
	created, err := s.repo.CreateItem(ctx, item, store.SeedInput(kind, req.InitialStock, seedAt))
	if err != nil {
		return domain.Item{}, err
	}

	if req.InitialStock > 0 {
		s.metrics.Committed(kind, domain.TxPurchase)
	}
	s.logger.Info("item created",
		zap.Int64("item_id", created.ID),
		zap.String("kind", string(kind)),
		zap.String("name", created.DisplayName()),
		zap.Float64("initial_stock", created.Stock),
	)
	return *created, nil
}

func (s *Service) FindItemByID(ctx context.Context, kind domain.Kind, id int64) (domain.Item, error) {
	if err := validKind(kind); err != nil {
		return domain.Item{}, err
	}
	item, err := s.repo.GetItem(ctx, kind, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) FindItemByIdentity(ctx context.Context, identity domain.Identity) (domain.Item, error) {
	if err := validKind(identity.Kind); err != nil {
		return domain.Item{}, err
	}
	identity.Name = strings.TrimSpace(identity.Name)
	side, err := normalizeSide(identity.Kind, identity.Side)
	if err != nil {
		return domain.Item{}, err
	}
	identity.Side = side

	item, err := s.repo.FindItemByIdentity(ctx, identity)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) ListItems(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, kind)
}

// UpdateItem applies a direct correction. A stock change made here writes no ledger entry.
func (s *Service) UpdateItem(ctx context.Context, kind domain.Kind, id int64, req domain.ItemUpdateRequest) (domain.Item, error) {
	if err := validKind(kind); err != nil {
		return domain.Item{}, err
	}
	existing, err := s.repo.GetItem(ctx, kind, id)
	if err != nil {
		return domain.Item{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Item{}, invalid("name is required")
		}
		updated.Name = name
	}
	if req.Side != nil {
		side, err := normalizeSide(kind, *req.Side)
		if err != nil {
			return domain.Item{}, err
		}
		updated.Side = side
	}
	if req.Supplier != nil {
		updated.Supplier = strings.TrimSpace(*req.Supplier)
	}
	if req.PurchasePrice != nil {
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		sale := *req.SalePrice
		updated.SalePrice = &sale
	}
	if err := validatePrices(updated.PurchasePrice, updated.SalePrice); err != nil {
		return domain.Item{}, err
	}
	if req.Stock != nil {
		stock := *req.Stock
		if stock < 0 {
			return domain.Item{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalidQuantity)
		}
		if stock > 0 {
			if err := domain.ValidateQuantity(kind, stock); err != nil {
				return domain.Item{}, err
			}
		}
		updated.Stock = stock
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}

	saved, err := s.repo.UpdateItem(ctx, updated)
	if err != nil {
		return domain.Item{}, err
	}

	if existing.Stock != saved.Stock {
		s.logger.Warn("stock corrected outside the ledger",
			zap.Int64("item_id", saved.ID),
			zap.String("kind", string(kind)),
			zap.Float64("from", existing.Stock),
			zap.Float64("to", saved.Stock),
		)
	}
	return *saved, nil
}

func (s *Service) DeleteItem(ctx context.Context, kind domain.Kind, id int64) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, kind, id); err != nil {
		return err
	}
	s.logger.Info("item deleted with its transactions", zap.Int64("item_id", id), zap.String("kind", string(kind)))
	return nil
}

// ReceiveStock books a delivery against an existing cost lot or opens a new one.
func (s *Service) ReceiveStock(ctx context.Context, kind domain.Kind, req domain.RestockRequest) (domain.RestockResponse, error) {
	if err := validKind(kind); err != nil {
		return domain.RestockResponse{}, err
	}
	if err := domain.ValidateQuantity(kind, req.Quantity); err != nil {
		return domain.RestockResponse{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.RestockResponse{}, invalid("name is required")
	}
	side, err := normalizeSide(kind, req.Side)
	if err != nil {
		return domain.RestockResponse{}, err
	}
	if err := validatePrices(req.PurchasePrice, req.SalePrice); err != nil {
		return domain.RestockResponse{}, err
	}
	purchaseDate, err := domain.ParseDate(req.PurchaseDate, false)
	if err != nil {
		return domain.RestockResponse{}, err
	}

	existing, err := s.repo.FindItemByIdentity(ctx, domain.Identity{Kind: kind, Name: name, Side: side, PurchasePrice: req.PurchasePrice})
	if errors.Is(err, store.ErrNotFound) {
		created, err := s.AddItem(ctx, kind, domain.ItemCreateRequest{
			Name:          name,
			Side:          side,
			Supplier:      req.Supplier,
			PurchaseDate:  req.PurchaseDate,
			PurchasePrice: req.PurchasePrice,
			SalePrice:     req.SalePrice,
			InitialStock:  req.Quantity,
			Notes:         req.Notes,
		})
		if err != nil {
			return domain.RestockResponse{}, err
		}
		return domain.RestockResponse{Item: created, Created: true}, nil
	}
	if err != nil {
		return domain.RestockResponse{}, err
	}

	var date *time.Time
	if !purchaseDate.IsZero() {
		date = &purchaseDate
	}
	tx, err := s.RecordTransaction(ctx, domain.TransactionRequest{
		Kind:     kind,
		Type:     domain.TxPurchase,
		ItemID:   existing.ID,
		Quantity: req.Quantity,
		Notes:    strings.TrimSpace(req.Notes),
		Date:     date,
	})
	if err != nil {
		return domain.RestockResponse{}, err
	}

	// The sale price only moves once the purchase is on the ledger.
	if req.SalePrice != nil && (existing.SalePrice == nil || *existing.SalePrice != *req.SalePrice) {
		repriced, err := s.UpdateItem(ctx, kind, existing.ID, domain.ItemUpdateRequest{SalePrice: req.SalePrice})
		if err != nil {
			return domain.RestockResponse{}, err
		}
		return domain.RestockResponse{Item: repriced, Transaction: &tx}, nil
	}

	item, err := s.repo.GetItem(ctx, kind, existing.ID)
	if err != nil {
		return domain.RestockResponse{}, err
	}
	return domain.RestockResponse{Item: *item, Transaction: &tx}, nil
}

// RecordTransaction is the single write path that moves stock.
func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	if err := validKind(req.Kind); err != nil {
		return domain.Transaction{}, err
	}
	if !req.Type.Valid() {
		return domain.Transaction{}, invalid("unknown transaction type %q", req.Type)
	}
	if req.ItemID < 1 {
		return domain.Transaction{}, invalid("item_id is required")
	}

	in := domain.LedgerInput{
		ItemID:        req.ItemID,
		Kind:          req.Kind,
		Type:          req.Type,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Notes:         strings.TrimSpace(req.Notes),
	}
	if req.Date != nil {
		in.Date = *req.Date
	} else {
		in.Date = s.now()
	}

	tx, err := s.repo.RecordTransaction(ctx, in)
	if err != nil {
		s.metrics.Rejected(req.Kind, err)
		fields := []zap.Field{
			zap.Int64("item_id", req.ItemID),
			zap.String("kind", string(req.Kind)),
			zap.String("type", string(req.Type)),
			zap.Float64("quantity", req.Quantity),
			zap.Error(err),
		}
		if errors.Is(err, store.ErrStorage) {
			s.logger.Error("ledger write failed", fields...)
		} else {
			s.logger.Warn("ledger write rejected", fields...)
		}
		return domain.Transaction{}, err
	}

	s.metrics.Committed(tx.Kind, tx.Type)
	s.logger.Info("transaction recorded",
		zap.Int64("transaction_id", tx.ID),
		zap.Int64("item_id", tx.ItemID),
		zap.String("kind", string(tx.Kind)),
		zap.String("type", string(tx.Type)),
		zap.Float64("quantity", tx.Quantity),
		zap.Float64("total_amount", tx.TotalAmount),
	)
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, kind *domain.Kind, r domain.DateRange) ([]domain.LedgerEntry, error) {
	if kind != nil {
		if err := validKind(*kind); err != nil {
			return nil, err
		}
	}
	if !r.Valid() {
		return nil, invalid("range end is before its start")
	}
	return s.repo.ListTransactions(ctx, domain.TransactionFilter{Kind: kind, Range: r})
}

// SearchTransactions is a case-insensitive substring scan over the filtered log.
func (s *Service) SearchTransactions(ctx context.Context, kind *domain.Kind, r domain.DateRange, term string) ([]domain.LedgerEntry, error) {
	entries, err := s.ListTransactions(ctx, kind, r)
	if err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return entries, nil
	}

	matched := make([]domain.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Matches(term) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// DateRange returns the saved analytics range, or month-to-date when none was saved.
func (s *Service) DateRange(ctx context.Context) (domain.DateRange, error) {
	r, ok, err := s.ranges.Load(ctx)
	if err != nil {
		s.logger.Warn("stored date range unreadable, using month to date", zap.Error(err))
		return domain.MonthToDate(s.now()), nil
	}
	if !ok || r.Unbounded() {
		return domain.MonthToDate(s.now()), nil
	}
	return r, nil
}

func (s *Service) SaveDateRange(ctx context.Context, r domain.DateRange) (domain.DateRange, error) {
	if r.From.IsZero() || r.To.IsZero() {
		return domain.DateRange{}, invalid("both from and to are required")
	}
	if !r.Valid() {
		return domain.DateRange{}, invalid("range end is before its start")
	}
	r = domain.DateRange{From: r.From.UTC(), To: r.To.UTC()}
	if err := s.ranges.Save(ctx, r); err != nil {
		return domain.DateRange{}, store.Storage(err)
	}
	return r, nil
}

// Analytics computes the dual-inventory report. A nil range uses the saved one.
func (s *Service) Analytics(ctx context.Context, r *domain.DateRange) (domain.AnalyticsReport, error) {
	var span domain.DateRange
	if r == nil {
		stored, err := s.DateRange(ctx)
		if err != nil {
			return domain.AnalyticsReport{}, err
		}
		span = stored
	} else {
		span = *r
	}
	if !span.Valid() {
		return domain.AnalyticsReport{}, invalid("range end is before its start")
	}

	fetch := span
	if s.aggregator.Options().LossScope == analytics.LossScopeAllTime {
		fetch = domain.DateRange{}
	}
	entries, err := s.repo.ListTransactions(ctx, domain.TransactionFilter{Range: fetch})
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	shopItems, err := s.repo.ListItems(ctx, domain.KindShopProduct)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	laserItems, err := s.repo.ListItems(ctx, domain.KindLaserMaterial)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}

	report := s.aggregator.Report(span, entries, shopItems, laserItems)
	s.metrics.SetLowStock(domain.KindShopProduct, report.Shop.LowStockCount)
	s.metrics.SetLowStock(domain.KindLaserMaterial, report.Laser.LowStockCount)
	return report, nil
}

// AssistantSnapshot gathers the read-only context the assistant answers from.
func (s *Service) AssistantSnapshot(ctx context.Context) (domain.AssistantSnapshot, error) {
	report, err := s.Analytics(ctx, nil)
	if err != nil {
		return domain.AssistantSnapshot{}, err
	}
	shopItems, err := s.repo.ListItems(ctx, domain.KindShopProduct)
	if err != nil {
		return domain.AssistantSnapshot{}, err
	}
	laserItems, err := s.repo.ListItems(ctx, domain.KindLaserMaterial)
	if err != nil {
		return domain.AssistantSnapshot{}, err
	}
	entries, err := s.repo.ListTransactions(ctx, domain.TransactionFilter{})
	if err != nil {
		return domain.AssistantSnapshot{}, err
	}
	if len(entries) > recentEntries {
		entries = entries[:recentEntries]
	}

	return domain.AssistantSnapshot{
		Analytics:      report,
		ShopProducts:   shopItems,
		LaserMaterials: laserItems,
		Transactions:   entries,
	}, nil
}

func (s *Service) Ask(ctx context.Context, question string) (domain.AssistantReply, error) {
	snap, err := s.AssistantSnapshot(ctx)
	if err != nil {
		return domain.AssistantReply{}, err
	}
	return s.assistant.Answer(ctx, question, snap)
}
