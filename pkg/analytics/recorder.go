package analytics

import (
	"context"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

// Recorder persists visits and forwards them to the aggregator. The counter
// increment and the log append are the authoritative write; the bucket
// rollups are best-effort and a rollup failure never unwinds a visit that
// already committed.
type Recorder struct {
	store      store.Store
	aggregator *Aggregator
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewRecorder creates a recorder in front of the given store and aggregator.
func NewRecorder(st store.Store, agg *Aggregator, logger *observability.Logger, metrics *observability.Metrics) *Recorder {
	return &Recorder{store: st, aggregator: agg, logger: logger, metrics: metrics}
}

// RecordVisit records one visit to the site. Returns NotFound for a missing
// or inactive site, leaving the store untouched. Aggregation failures are
// logged and counted but the call still succeeds.
func (r *Recorder) RecordVisit(ctx context.Context, siteID int64, ev *nav.VisitEvent) error {
	if err := r.store.RecordClick(ctx, siteID, ev); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.ClicksRecordedTotal.Inc()
	}
	if err := r.aggregator.ApplyVisit(ctx, ev); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).WithField("site_id", siteID).
				Warn("visit recorded but rollups were not updated")
		}
	}
	return nil
}
