package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"venomshop/backend/internal/domain"
)

const DefaultSchedule = "0 20 * * *"

// AnalyticsSource computes the report the daily summary logs.
type AnalyticsSource interface {
	Analytics(ctx context.Context, r *domain.DateRange) (domain.AnalyticsReport, error)
}

// Scheduler runs the end-of-day summary.
type Scheduler struct {
	cron     *cron.Cron
	source   AnalyticsSource
	schedule string
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(schedule string, source AnalyticsSource, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &Scheduler{
		cron:     cron.New(),
		source:   source,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateSchedule reports whether expr is a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runDailySummary); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running summary to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailySummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.DailySummary(ctx); err != nil {
		s.logger.Error("failed to generate daily summary", zap.Error(err))
	}
}

// DailySummary computes today's analytics, logs the combined totals and warns once per low-stock item.
func (s *Scheduler) DailySummary(ctx context.Context) (domain.AnalyticsReport, error) {
	today := domain.Day(s.now())
	report, err := s.source.Analytics(ctx, &today)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}

	s.logger.Info("daily summary",
		zap.String("date", today.From.Format("2006-01-02")),
		zap.Float64("revenue", report.Combined.Revenue),
		zap.Float64("cogs", report.Combined.COGS),
		zap.Float64("waste_cost", report.Combined.WasteCost),
		zap.Float64("profit", report.Combined.Profit),
		zap.Float64("loss", report.Combined.Loss),
		zap.Int("sales", report.Combined.SalesCount),
	)

	for _, section := range []domain.KindAnalytics{report.Shop, report.Laser} {
		for _, item := range section.LowStock {
			s.logger.Warn("low stock",
				zap.String("kind", string(item.Kind)),
				zap.Int64("item_id", item.ID),
				zap.String("name", item.DisplayName()),
				zap.Float64("stock", item.Stock),
			)
		}
	}
	return report, nil
}
