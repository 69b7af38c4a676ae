package analytics

import (
	"context"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

// Aggregator maintains the derived visit buckets. Every visit touches the
// whole-day bucket, the hourly bucket and, when the site has a category, the
// per-category bucket. The buckets are dual-written; neither is derived from
// the other.
type Aggregator struct {
	store   store.Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(st store.Store, logger *observability.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{store: st, logger: logger, metrics: metrics}
}

// ApplyVisit bumps every bucket the event belongs to. A failed bucket write
// does not stop the remaining writes; the first failure is reported after
// all buckets were attempted.
func (a *Aggregator) ApplyVisit(ctx context.Context, ev *nav.VisitEvent) error {
	dateKey := nav.DateKey(ev.Timestamp)
	hour := ev.Timestamp.Hour()

	var firstErr error
	record := func(bucket string, err error) {
		if err == nil {
			return
		}
		a.bucketFailed(bucket, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	record("day", a.store.UpsertVisitTrend(ctx, dateKey, nil))
	record("hour", a.store.UpsertVisitTrend(ctx, dateKey, &hour))
	if ev.CategoryID != nil {
		record("category", a.store.UpsertCategoryStat(ctx, *ev.CategoryID, dateKey))
	}

	if firstErr != nil {
		return nav.AggregationFailure("rollup write failed", firstErr)
	}
	return nil
}

func (a *Aggregator) bucketFailed(bucket string, err error) {
	if a.metrics != nil {
		a.metrics.AggregationFailuresTotal.WithLabelValues(bucket).Inc()
	}
	if a.logger != nil {
		a.logger.WithError(err).WithField("bucket", bucket).Warn("bucket upsert failed")
	}
}

// ReconcileDay rebuilds one day's buckets from the raw visit log. Only the
// offline reconciler calls this; the serving path never does.
func (a *Aggregator) ReconcileDay(ctx context.Context, dateKey string) error {
	err := a.store.ReconcileDay(ctx, dateKey)
	if a.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		a.metrics.ReconcileRunsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		return nav.AggregationFailure("day reconcile failed", err)
	}
	if a.logger != nil {
		a.logger.WithField("date", dateKey).Info("day buckets reconciled")
	}
	return nil
}
