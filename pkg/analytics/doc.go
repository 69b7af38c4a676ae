// Package analytics implements the click pipeline and the stats query
// engine: the recorder persists visits, the aggregator keeps the derived
// time buckets moving, and the service answers overview, trend and ranking
// queries with a degraded path when no buckets exist yet.
package analytics
