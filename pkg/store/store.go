// Package store defines the persistence contract for the navigation admin
// core and provides the in-memory fallback backend. The relational backend
// lives in the postgres subpackage; both implement Store and behave
// identically from the caller's point of view.
//
// Backend selection is a one-time decision made at process start: the
// binaries try the relational backend first and substitute the fallback when
// the connection cannot be established. There is no per-call retry.
package store

import (
	"context"
	"time"

	"github.com/guluwater/navadmin/pkg/nav"
)

// Backend identifies which concrete implementation is serving the process.
type Backend string

const (
	BackendRelational Backend = "relational"
	BackendFallback   Backend = "fallback"
)

// Page is 1-based pagination. A zero value gets sane defaults.
type Page struct {
	Number int
	Size   int
}

// Limit returns the effective page size.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return 10
	}
	return p.Size
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	n := p.Number
	if n <= 1 {
		return 0
	}
	return (n - 1) * p.Limit()
}

// SiteFilter narrows a site listing. Search is a case-insensitive substring
// match over name, description and url.
type SiteFilter struct {
	Search     string
	Status     *nav.Status
	CategoryID *int64
}

// CategoryFilter narrows a category listing.
type CategoryFilter struct {
	Search string
	Status *nav.Status
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Search string
	Status *nav.Status
	Role   *nav.Role
}

// SettingFilter narrows a setting listing.
type SettingFilter struct {
	Search string
}

// ActivityFilter narrows an activity log listing.
type ActivityFilter struct {
	UserID     *int64
	ActionType *nav.ActionType
	TargetType string
}

// SiteChanges is a partial site update. Nil fields keep their prior value.
// ClearCategory removes the category reference; it wins over CategoryID.
type SiteChanges struct {
	Name          *string
	URL           *string
	Description   *string
	Icon          *string
	CategoryID    *int64
	ClearCategory bool
	SortOrder     *int
	Status        *nav.Status
}

// CategoryChanges is a partial category update.
type CategoryChanges struct {
	Name        *string
	Description *string
	Icon        *string
	SortOrder   *int
	Status      *nav.Status
}

// UserChanges is a partial user update.
type UserChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *nav.Role
	Status       *nav.Status
}

// OverviewCounts are the headline numbers of the dashboard.
type OverviewCounts struct {
	ActiveSites      int64 `json:"total_sites"`
	ActiveCategories int64 `json:"total_categories"`
	Users            int64 `json:"total_users"`
	TotalClicks      int64 `json:"total_clicks"`
	TodayVisits      int64 `json:"today_visits"`
	MonthVisits      int64 `json:"month_visits"`
}

// RankedSite is a site row joined with its category name for ranking and
// popular-site views. RecentVisits is only populated by the recent ranking.
type RankedSite struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Icon         string `json:"icon,omitempty"`
	ClickCount   int64  `json:"click_count"`
	CategoryName string `json:"category_name,omitempty"`
	CategoryIcon string `json:"category_icon,omitempty"`
	RecentVisits int64  `json:"recent_visits,omitempty"`
}

// VisitDetail is a visit event joined with the target site's name and url.
type VisitDetail struct {
	nav.VisitEvent
	SiteName string `json:"site_name"`
	SiteURL  string `json:"site_url"`
}

// CategoryAggregate is the live per-category rollup computed from the sites
// table itself (site count and summed click counters). It backs the category
// breakdown view and the degraded trends path when bucket tables are empty.
type CategoryAggregate struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	SiteCount  int64  `json:"value"`
	Clicks     int64  `json:"clicks"`
}

// Store is the persistence contract implemented by both backends.
//
// All mutations are atomic with respect to concurrent callers of the same
// store. RecordClick performs its counter increment and log append inside a
// single unit of work: a transaction on the relational backend, a mutex
// critical section on the fallback. The rollup upserts are single-statement
// insert-or-increment operations; concurrent visits to the same bucket key
// must not lose increments.
type Store interface {
	// Sites
	ListSites(ctx context.Context, f SiteFilter, p Page) ([]nav.Site, int64, error)
	GetSite(ctx context.Context, id int64) (*nav.Site, error)
	CreateSite(ctx context.Context, s *nav.Site) error
	UpdateSite(ctx context.Context, id int64, ch SiteChanges) (*nav.Site, error)
	DeleteSite(ctx context.Context, id int64) error

	// Categories
	ListCategories(ctx context.Context, f CategoryFilter, p Page) ([]nav.Category, int64, error)
	GetCategory(ctx context.Context, id int64) (*nav.Category, error)
	CreateCategory(ctx context.Context, c *nav.Category) error
	UpdateCategory(ctx context.Context, id int64, ch CategoryChanges) (*nav.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Users
	ListUsers(ctx context.Context, f UserFilter, p Page) ([]nav.User, int64, error)
	GetUser(ctx context.Context, id int64) (*nav.User, error)
	GetUserByUsername(ctx context.Context, username string) (*nav.User, error)
	CreateUser(ctx context.Context, u *nav.User) error
	UpdateUser(ctx context.Context, id int64, ch UserChanges) (*nav.User, error)
	DeleteUser(ctx context.Context, id int64) error

	// Settings. PutSetting is an idempotent upsert on the key.
	ListSettings(ctx context.Context, f SettingFilter, p Page) ([]nav.Setting, int64, error)
	GetSetting(ctx context.Context, key string) (*nav.Setting, error)
	PutSetting(ctx context.Context, s *nav.Setting) error
	DeleteSetting(ctx context.Context, key string) error

	// Click pipeline primitives
	RecordClick(ctx context.Context, siteID int64, ev *nav.VisitEvent) error
	UpsertVisitTrend(ctx context.Context, dateKey string, hour *int) error
	UpsertCategoryStat(ctx context.Context, categoryID int64, dateKey string) error

	// Stats reads
	Overview(ctx context.Context, now time.Time) (*OverviewCounts, error)
	RecentVisits(ctx context.Context, limit int) ([]VisitDetail, error)
	DailyTrends(ctx context.Context, days int, now time.Time) ([]nav.VisitTrendBucket, error)
	HourlyTrends(ctx context.Context, dateKey string) ([]nav.VisitTrendBucket, error)
	CategoryStats(ctx context.Context, days int, now time.Time) ([]nav.CategoryStatBucket, error)
	RankingByClicks(ctx context.Context, limit int) ([]RankedSite, error)
	RankingByRecent(ctx context.Context, limit, days int, now time.Time) ([]RankedSite, error)
	CategoryBreakdown(ctx context.Context) ([]CategoryAggregate, error)

	// ReconcileDay rebuilds the trend and category buckets for one day from
	// the raw visit log, replacing whatever incremental upserts accumulated.
	// Used by the offline reconciler, never by the request path.
	ReconcileDay(ctx context.Context, dateKey string) error

	// Activity log (append-only)
	AppendActivity(ctx context.Context, e *nav.ActivityLogEntry) error
	ListActivity(ctx context.Context, f ActivityFilter, p Page) ([]nav.ActivityLogEntry, int64, error)

	Backend() Backend
	Ping(ctx context.Context) error
	Close() error
}
