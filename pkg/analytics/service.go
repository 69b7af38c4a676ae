package analytics

import (
	"context"
	"time"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

const (
	defaultTrendDays   = 7
	defaultRankingSize = 10
	overviewTopSites   = 10
	overviewLastVisits = 10
)

// RankingType selects the ranking order.
type RankingType string

const (
	RankByClicks RankingType = "clicks"
	RankByRecent RankingType = "recent"
)

// ParseRankingType maps a query value to a ranking type; anything unknown
// falls back to the click ranking, matching the original behavior.
func ParseRankingType(s string) RankingType {
	if s == string(RankByRecent) {
		return RankByRecent
	}
	return RankByClicks
}

// OverviewReport is the dashboard headline view.
type OverviewReport struct {
	store.OverviewCounts
	PopularSites []store.RankedSite  `json:"popular_sites"`
	RecentVisits []store.VisitDetail `json:"recent_visits"`
}

// TrendsReport bundles the daily, hourly and per-category rollups for one
// window. Derived is set when the window held no buckets and the values were
// reconstructed from the live click counters instead.
type TrendsReport struct {
	Days       int                      `json:"days"`
	Daily      []nav.VisitTrendBucket   `json:"daily"`
	Hourly     []nav.VisitTrendBucket   `json:"hourly"`
	Categories []nav.CategoryStatBucket `json:"categories"`
	Derived    bool                     `json:"derived,omitempty"`
}

// RankingReport is an ordered site list for one ranking type.
type RankingReport struct {
	Type  RankingType        `json:"type"`
	Days  int                `json:"days,omitempty"`
	Sites []store.RankedSite `json:"sites"`
}

// Service answers the stats queries. It only reads; all bucket writes go
// through the aggregator.
type Service struct {
	store  store.Store
	logger *observability.Logger
}

// NewService creates a stats service over the given store.
func NewService(st store.Store, logger *observability.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Overview returns the headline counts, the top sites by clicks and the
// most recent visits.
func (s *Service) Overview(ctx context.Context) (*OverviewReport, error) {
	now := time.Now().UTC()
	counts, err := s.store.Overview(ctx, now)
	if err != nil {
		return nil, err
	}
	popular, err := s.store.RankingByClicks(ctx, overviewTopSites)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentVisits(ctx, overviewLastVisits)
	if err != nil {
		return nil, err
	}
	return &OverviewReport{
		OverviewCounts: *counts,
		PopularSites:   popular,
		RecentVisits:   recent,
	}, nil
}

// Trends returns the last N whole-day buckets, today's hourly buckets and
// the per-category rollups over the window. A window with no buckets at all
// (a freshly seeded system, or rollups lost before a reconcile) degrades to
// values derived from the live click counters rather than returning zeros.
func (s *Service) Trends(ctx context.Context, days int) (*TrendsReport, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	now := time.Now().UTC()

	daily, err := s.store.DailyTrends(ctx, days, now)
	if err != nil {
		return nil, err
	}
	hourly, err := s.store.HourlyTrends(ctx, nav.DateKey(now))
	if err != nil {
		return nil, err
	}
	categories, err := s.store.CategoryStats(ctx, days, now)
	if err != nil {
		return nil, err
	}

	report := &TrendsReport{Days: days, Daily: daily, Hourly: hourly, Categories: categories}
	if len(daily) == 0 && len(categories) == 0 {
		if err := s.deriveFromClickCounts(ctx, now, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// deriveFromClickCounts reconstructs a minimal trends view from the sites
// table: one whole-day bucket dated today carrying the total click count,
// and per-category rows from the live breakdown.
func (s *Service) deriveFromClickCounts(ctx context.Context, now time.Time, report *TrendsReport) error {
	breakdown, err := s.store.CategoryBreakdown(ctx)
	if err != nil {
		return err
	}
	var totalClicks int64
	categories := make([]nav.CategoryStatBucket, 0, len(breakdown))
	for _, agg := range breakdown {
		totalClicks += agg.Clicks
		categories = append(categories, nav.CategoryStatBucket{
			CategoryID:   agg.CategoryID,
			CategoryName: agg.Name,
			CategoryIcon: agg.Icon,
			DateKey:      nav.DateKey(now),
			ClickCount:   agg.Clicks,
		})
	}
	if totalClicks > 0 {
		report.Daily = []nav.VisitTrendBucket{{
			DateKey:    nav.DateKey(now),
			VisitCount: totalClicks,
			PageViews:  totalClicks,
		}}
	}
	report.Categories = categories
	report.Derived = true
	if s.logger != nil {
		s.logger.WithField("days", report.Days).Debug("no buckets in window, trends derived from click counters")
	}
	return nil
}

// Ranking returns the ordered site list for the given type. Ties are broken
// by site id ascending on both backends.
func (s *Service) Ranking(ctx context.Context, typ RankingType, limit, days int) (*RankingReport, error) {
	if limit <= 0 {
		limit = defaultRankingSize
	}
	if days <= 0 {
		days = defaultTrendDays
	}
	switch typ {
	case RankByRecent:
		sites, err := s.store.RankingByRecent(ctx, limit, days, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		return &RankingReport{Type: RankByRecent, Days: days, Sites: sites}, nil
	default:
		sites, err := s.store.RankingByClicks(ctx, limit)
		if err != nil {
			return nil, err
		}
		return &RankingReport{Type: RankByClicks, Sites: sites}, nil
	}
}

// CategoryBreakdown returns the live per-category rollup from the sites
// table.
func (s *Service) CategoryBreakdown(ctx context.Context) ([]store.CategoryAggregate, error) {
	return s.store.CategoryBreakdown(ctx)
}
