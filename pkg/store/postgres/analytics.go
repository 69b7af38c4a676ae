package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

// RecordClick increments the site's click counter and appends the visit log
// row in one transaction. A missing or inactive site rolls back untouched.
func (s *Store) RecordClick(ctx context.Context, siteID int64, ev *nav.VisitEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nav.TransientStore("failed to begin click transaction", err)
	}
	defer tx.Rollback()

	var categoryID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`UPDATE sites SET click_count = click_count + 1, updated_at = now()
		 WHERE id = $1 AND status = 'active'
		 RETURNING category_id`, siteID).Scan(&categoryID)
	if err == sql.ErrNoRows {
		return nav.NotFoundf("site %d not found or inactive", siteID)
	}
	if err != nil {
		return nav.TransientStore("failed to increment click count", err)
	}

	ev.SiteID = siteID
	ev.CategoryID = nil
	if categoryID.Valid {
		ev.CategoryID = &categoryID.Int64
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO access_logs (site_id, category_id, visited_at, ip_address, user_agent, referer)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		siteID, nullableID(ev.CategoryID), ev.Timestamp, ev.ClientIP, ev.UserAgent, ev.Referer,
	).Scan(&ev.ID)
	if err != nil {
		return nav.TransientStore("failed to append visit log", err)
	}

	if err := tx.Commit(); err != nil {
		return nav.TransientStore("failed to commit click transaction", err)
	}
	return nil
}

// UpsertVisitTrend bumps one trend bucket with a single insert-or-increment
// statement, so concurrent visits to the same bucket never lose increments.
// The unique_visitors column moves with every event rather than counting
// distinct visitors; the simplification is carried over from the source
// system.
func (s *Store) UpsertVisitTrend(ctx context.Context, dateKey string, hour *int) error {
	var hourArg interface{}
	if hour != nil {
		hourArg = *hour
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visit_trends (date_key, hour, visit_count, unique_visitors, page_views)
		 VALUES ($1, $2, 1, 1, 1)
		 ON CONFLICT (date_key, COALESCE(hour, -1)) DO UPDATE SET
		   visit_count = visit_trends.visit_count + 1,
		   unique_visitors = visit_trends.unique_visitors + 1,
		   page_views = visit_trends.page_views + 1`,
		dateKey, hourArg)
	if err != nil {
		return nav.TransientStore("failed to upsert visit trend", err)
	}
	return nil
}

func (s *Store) UpsertCategoryStat(ctx context.Context, categoryID int64, dateKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO category_stats (category_id, date_key, click_count, unique_visitors)
		 VALUES ($1, $2, 1, 1)
		 ON CONFLICT (category_id, date_key) DO UPDATE SET
		   click_count = category_stats.click_count + 1,
		   unique_visitors = category_stats.unique_visitors + 1`,
		categoryID, dateKey)
	if err != nil {
		return nav.TransientStore("failed to upsert category stat", err)
	}
	return nil
}

// Stats reads

func (s *Store) Overview(ctx context.Context, now time.Time) (*store.OverviewCounts, error) {
	var o store.OverviewCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM sites WHERE status = 'active'),
		   (SELECT COUNT(*) FROM categories WHERE status = 'active'),
		   (SELECT COUNT(*) FROM users),
		   (SELECT COALESCE(SUM(click_count), 0) FROM sites)`,
	).Scan(&o.ActiveSites, &o.ActiveCategories, &o.Users, &o.TotalClicks)
	if err != nil {
		return nil, nav.TransientStore("failed to read overview counts", err)
	}

	today := nav.DateKey(now)
	monthPrefix := now.Format("2006-01") + "%"
	err = s.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(visit_count) FILTER (WHERE date_key = $1), 0),
		   COALESCE(SUM(visit_count), 0)
		 FROM visit_trends
		 WHERE hour IS NULL AND date_key LIKE $2`,
		today, monthPrefix,
	).Scan(&o.TodayVisits, &o.MonthVisits)
	if err != nil {
		return nil, nav.TransientStore("failed to read visit totals", err)
	}
	return &o, nil
}

func (s *Store) RecentVisits(ctx context.Context, limit int) ([]store.VisitDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.site_id, a.category_id, a.visited_at, a.ip_address, a.user_agent, a.referer,
		        COALESCE(s.name, ''), COALESCE(s.url, '')
		 FROM access_logs a
		 LEFT JOIN sites s ON s.id = a.site_id
		 ORDER BY a.visited_at DESC, a.id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, nav.TransientStore("failed to list recent visits", err)
	}
	defer rows.Close()

	out := make([]store.VisitDetail, 0, limit)
	for rows.Next() {
		var d store.VisitDetail
		var categoryID sql.NullInt64
		err := rows.Scan(&d.ID, &d.SiteID, &categoryID, &d.Timestamp, &d.ClientIP, &d.UserAgent, &d.Referer,
			&d.SiteName, &d.SiteURL)
		if err != nil {
			return nil, nav.TransientStore("failed to scan visit", err)
		}
		if categoryID.Valid {
			d.CategoryID = &categoryID.Int64
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read visits", err)
	}
	return out, nil
}

func (s *Store) DailyTrends(ctx context.Context, days int, now time.Time) ([]nav.VisitTrendBucket, error) {
	cutoff := nav.DateKey(now.AddDate(0, 0, -(days - 1)))
	rows, err := s.db.QueryContext(ctx,
		`SELECT date_key, visit_count, unique_visitors, page_views
		 FROM visit_trends
		 WHERE hour IS NULL AND date_key >= $1
		 ORDER BY date_key ASC`, cutoff)
	if err != nil {
		return nil, nav.TransientStore("failed to list daily trends", err)
	}
	defer rows.Close()

	var out []nav.VisitTrendBucket
	for rows.Next() {
		var b nav.VisitTrendBucket
		if err := rows.Scan(&b.DateKey, &b.VisitCount, &b.UniqueVisitors, &b.PageViews); err != nil {
			return nil, nav.TransientStore("failed to scan trend bucket", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read trend buckets", err)
	}
	return out, nil
}

func (s *Store) HourlyTrends(ctx context.Context, dateKey string) ([]nav.VisitTrendBucket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date_key, hour, visit_count, unique_visitors, page_views
		 FROM visit_trends
		 WHERE hour IS NOT NULL AND date_key = $1
		 ORDER BY hour ASC`, dateKey)
	if err != nil {
		return nil, nav.TransientStore("failed to list hourly trends", err)
	}
	defer rows.Close()

	var out []nav.VisitTrendBucket
	for rows.Next() {
		var b nav.VisitTrendBucket
		var hour int
		if err := rows.Scan(&b.DateKey, &hour, &b.VisitCount, &b.UniqueVisitors, &b.PageViews); err != nil {
			return nil, nav.TransientStore("failed to scan trend bucket", err)
		}
		b.Hour = &hour
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read trend buckets", err)
	}
	return out, nil
}

func (s *Store) CategoryStats(ctx context.Context, days int, now time.Time) ([]nav.CategoryStatBucket, error) {
	cutoff := nav.DateKey(now.AddDate(0, 0, -(days - 1)))
	rows, err := s.db.QueryContext(ctx,
		`SELECT cs.category_id, COALESCE(c.name, ''), COALESCE(c.icon, ''),
		        SUM(cs.click_count), SUM(cs.unique_visitors)
		 FROM category_stats cs
		 LEFT JOIN categories c ON c.id = cs.category_id
		 WHERE cs.date_key >= $1
		 GROUP BY cs.category_id, c.name, c.icon
		 ORDER BY SUM(cs.click_count) DESC, cs.category_id ASC`, cutoff)
	if err != nil {
		return nil, nav.TransientStore("failed to list category stats", err)
	}
	defer rows.Close()

	var out []nav.CategoryStatBucket
	for rows.Next() {
		var b nav.CategoryStatBucket
		err := rows.Scan(&b.CategoryID, &b.CategoryName, &b.CategoryIcon, &b.ClickCount, &b.UniqueVisitors)
		if err != nil {
			return nil, nav.TransientStore("failed to scan category stat", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read category stats", err)
	}
	return out, nil
}

const rankedColumns = `s.id, s.name, s.url, s.icon, s.click_count,
	        COALESCE(c.name, ''), COALESCE(c.icon, '')`

func (s *Store) RankingByClicks(ctx context.Context, limit int) ([]store.RankedSite, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s
		 FROM sites s
		 LEFT JOIN categories c ON c.id = s.category_id
		 WHERE s.status = 'active'
		 ORDER BY s.click_count DESC, s.id ASC
		 LIMIT $1`, rankedColumns), limit)
	if err != nil {
		return nil, nav.TransientStore("failed to rank sites by clicks", err)
	}
	defer rows.Close()
	return scanRankedSites(rows, false)
}

func (s *Store) RankingByRecent(ctx context.Context, limit, days int, now time.Time) ([]store.RankedSite, error) {
	cutoff := now.AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s, COUNT(a.id)
		 FROM sites s
		 LEFT JOIN categories c ON c.id = s.category_id
		 LEFT JOIN access_logs a ON a.site_id = s.id AND a.visited_at >= $1
		 WHERE s.status = 'active'
		 GROUP BY s.id, c.name, c.icon
		 ORDER BY COUNT(a.id) DESC, s.id ASC
		 LIMIT $2`, rankedColumns), cutoff, limit)
	if err != nil {
		return nil, nav.TransientStore("failed to rank sites by recent visits", err)
	}
	defer rows.Close()
	return scanRankedSites(rows, true)
}

func scanRankedSites(rows *sql.Rows, withRecent bool) ([]store.RankedSite, error) {
	var out []store.RankedSite
	for rows.Next() {
		var r store.RankedSite
		dest := []interface{}{&r.ID, &r.Name, &r.URL, &r.Icon, &r.ClickCount, &r.CategoryName, &r.CategoryIcon}
		if withRecent {
			dest = append(dest, &r.RecentVisits)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nav.TransientStore("failed to scan ranked site", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read ranked sites", err)
	}
	return out, nil
}

func (s *Store) CategoryBreakdown(ctx context.Context) ([]store.CategoryAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.icon, COUNT(s.id), COALESCE(SUM(s.click_count), 0)
		 FROM categories c
		 LEFT JOIN sites s ON s.category_id = c.id AND s.status = 'active'
		 WHERE c.status = 'active'
		 GROUP BY c.id, c.name, c.icon
		 ORDER BY COUNT(s.id) DESC, c.id ASC`)
	if err != nil {
		return nil, nav.TransientStore("failed to read category breakdown", err)
	}
	defer rows.Close()

	var out []store.CategoryAggregate
	for rows.Next() {
		var a store.CategoryAggregate
		if err := rows.Scan(&a.CategoryID, &a.Name, &a.Icon, &a.SiteCount, &a.Clicks); err != nil {
			return nil, nav.TransientStore("failed to scan category aggregate", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nav.TransientStore("failed to read category aggregates", err)
	}
	return out, nil
}

// ReconcileDay rebuilds the buckets for one day from the raw visit log. The
// delete and the rebuilds run in one transaction, so readers see either the
// old buckets or the new ones, never a half-rebuilt day.
func (s *Store) ReconcileDay(ctx context.Context, dateKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nav.TransientStore("failed to begin reconcile transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM visit_trends WHERE date_key = $1`, dateKey); err != nil {
		return nav.TransientStore("failed to clear visit trends", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_stats WHERE date_key = $1`, dateKey); err != nil {
		return nav.TransientStore("failed to clear category stats", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO visit_trends (date_key, hour, visit_count, unique_visitors, page_views)
		 SELECT $1, NULL, COUNT(*), COUNT(*), COUNT(*)
		 FROM access_logs
		 WHERE to_char(visited_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $1
		 HAVING COUNT(*) > 0`, dateKey)
	if err != nil {
		return nav.TransientStore("failed to rebuild day bucket", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO visit_trends (date_key, hour, visit_count, unique_visitors, page_views)
		 SELECT $1, EXTRACT(HOUR FROM visited_at AT TIME ZONE 'UTC')::smallint, COUNT(*), COUNT(*), COUNT(*)
		 FROM access_logs
		 WHERE to_char(visited_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $1
		 GROUP BY 2`, dateKey)
	if err != nil {
		return nav.TransientStore("failed to rebuild hour buckets", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO category_stats (category_id, date_key, click_count, unique_visitors)
		 SELECT category_id, $1, COUNT(*), COUNT(*)
		 FROM access_logs
		 WHERE category_id IS NOT NULL
		   AND to_char(visited_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $1
		 GROUP BY category_id`, dateKey)
	if err != nil {
		return nav.TransientStore("failed to rebuild category stats", err)
	}

	if err := tx.Commit(); err != nil {
		return nav.TransientStore("failed to commit reconcile transaction", err)
	}
	return nil
}

// Activity log

func (s *Store) AppendActivity(ctx context.Context, e *nav.ActivityLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO activity_logs (user_id, action_type, target_type, target_id, title, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.UserID, string(e.ActionType), e.TargetType, nullableID(e.TargetID), e.Title, e.Description, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return nav.TransientStore("failed to append activity", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, f store.ActivityFilter, p store.Page) ([]nav.ActivityLogEntry, int64, error) {
	var cond condition
	if f.UserID != nil {
		cond.add("user_id = ?", *f.UserID)
	}
	if f.ActionType != nil {
		cond.add("action_type = ?", string(*f.ActionType))
	}
	if f.TargetType != "" {
		cond.add("target_type = ?", f.TargetType)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_logs"+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, nav.TransientStore("failed to count activity", err)
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, action_type, target_type, target_id, title, description, created_at
		 FROM activity_logs%s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, cond.where(), len(cond.args)+1, len(cond.args)+2)
	args := append(cond.args, p.Limit(), p.Offset())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, nav.TransientStore("failed to list activity", err)
	}
	defer rows.Close()

	entries := make([]nav.ActivityLogEntry, 0, p.Limit())
	for rows.Next() {
		var e nav.ActivityLogEntry
		var targetID sql.NullInt64
		err := rows.Scan(&e.ID, &e.UserID, &e.ActionType, &e.TargetType, &targetID, &e.Title, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, 0, nav.TransientStore("failed to scan activity entry", err)
		}
		if targetID.Valid {
			e.TargetID = &targetID.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nav.TransientStore("failed to read activity entries", err)
	}
	return entries, total, nil
}
