package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guluwater/navadmin/pkg/nav"
)

func newEmpty(t *testing.T) *MemoryStore {
	t.Helper()
	m, err := NewMemoryStore(&SeedData{})
	require.NoError(t, err)
	return m
}

func mustCreateSite(t *testing.T, m *MemoryStore, name string, catID *int64, sortOrder int) *nav.Site {
	t.Helper()
	s := &nav.Site{
		Name:       name,
		URL:        "https://" + name + ".example",
		CategoryID: catID,
		SortOrder:  sortOrder,
		Status:     nav.StatusActive,
	}
	require.NoError(t, m.CreateSite(context.Background(), s))
	return s
}

func mustCreateCategory(t *testing.T, m *MemoryStore, name string) *nav.Category {
	t.Helper()
	c := &nav.Category{Name: name, Status: nav.StatusActive}
	require.NoError(t, m.CreateCategory(context.Background(), c))
	return c
}

func TestDefaultSeedLoads(t *testing.T) {
	m, err := NewMemoryStore(nil)
	require.NoError(t, err)

	ctx := context.Background()
	cats, total, err := m.ListCategories(ctx, CategoryFilter{}, Page{Size: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, cats, 6)

	_, total, err = m.ListSites(ctx, SiteFilter{}, Page{Size: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(29), total)

	admin, err := m.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, nav.RoleAdmin, admin.Role)
}

func TestSiteOrderingAndPagination(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	// Same sort order for b and c, insertion id breaks the tie.
	mustCreateSite(t, m, "b", nil, 2)
	mustCreateSite(t, m, "c", nil, 2)
	mustCreateSite(t, m, "a", nil, 1)

	sites, total, err := m.ListSites(ctx, SiteFilter{}, Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, sites, 2)
	assert.Equal(t, "a", sites[0].Name)
	assert.Equal(t, "b", sites[1].Name)

	sites, _, err = m.ListSites(ctx, SiteFilter{}, Page{Number: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "c", sites[0].Name)

	// Past the last page comes back empty, not an error.
	sites, total, err = m.ListSites(ctx, SiteFilter{}, Page{Number: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, sites)
	assert.Equal(t, int64(3), total)
}

func TestSiteSearchAndFilters(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	cat := mustCreateCategory(t, m, "Dev")
	mustCreateSite(t, m, "github", &cat.ID, 1)
	s := mustCreateSite(t, m, "weather", nil, 2)

	inactive := nav.StatusInactive
	_, err := m.UpdateSite(ctx, s.ID, SiteChanges{Status: &inactive})
	require.NoError(t, err)

	sites, _, err := m.ListSites(ctx, SiteFilter{Search: "HUB"}, Page{})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "github", sites[0].Name)

	active := nav.StatusActive
	_, total, err := m.ListSites(ctx, SiteFilter{Status: &active}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = m.ListSites(ctx, SiteFilter{CategoryID: &cat.ID}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSiteValidation(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	err := m.CreateSite(ctx, &nav.Site{Name: "", URL: "https://x.example"})
	assert.True(t, nav.IsValidation(err))

	err = m.CreateSite(ctx, &nav.Site{Name: "x", URL: "not a url"})
	assert.True(t, nav.IsValidation(err))

	bogus := int64(99)
	err = m.CreateSite(ctx, &nav.Site{Name: "x", URL: "https://x.example", CategoryID: &bogus})
	assert.True(t, nav.IsValidation(err))
}

func TestUpdateSitePartial(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	cat := mustCreateCategory(t, m, "Dev")
	s := mustCreateSite(t, m, "orig", &cat.ID, 1)

	desc := "new description"
	updated, err := m.UpdateSite(ctx, s.ID, SiteChanges{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "orig", updated.Name)
	assert.Equal(t, desc, updated.Description)
	require.NotNil(t, updated.CategoryID)

	updated, err = m.UpdateSite(ctx, s.ID, SiteChanges{ClearCategory: true})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)

	_, err = m.UpdateSite(ctx, 999, SiteChanges{})
	assert.True(t, nav.IsNotFound(err))
}

func TestCategoryUniqueName(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	mustCreateCategory(t, m, "News")
	err := m.CreateCategory(ctx, &nav.Category{Name: "News"})
	assert.True(t, nav.IsConflict(err))

	other := mustCreateCategory(t, m, "Tools")
	name := "News"
	_, err = m.UpdateCategory(ctx, other.ID, CategoryChanges{Name: &name})
	assert.True(t, nav.IsConflict(err))
}

func TestDeleteCategoryGuarded(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	cat := mustCreateCategory(t, m, "Dev")
	s := mustCreateSite(t, m, "a", &cat.ID, 1)

	err := m.DeleteCategory(ctx, cat.ID)
	assert.True(t, nav.IsConflict(err))

	// The site survives the refused delete.
	_, err = m.GetSite(ctx, s.ID)
	require.NoError(t, err)

	require.NoError(t, m.DeleteSite(ctx, s.ID))
	require.NoError(t, m.DeleteCategory(ctx, cat.ID))
	assert.True(t, nav.IsNotFound(m.DeleteCategory(ctx, cat.ID)))
}

func TestUserUniqueness(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	u := &nav.User{Username: "alice", Email: "alice@example.com", Role: nav.RoleAdmin}
	require.NoError(t, m.CreateUser(ctx, u))

	err := m.CreateUser(ctx, &nav.User{Username: "alice", Email: "a2@example.com", Role: nav.RoleViewer})
	assert.True(t, nav.IsConflict(err))
	err = m.CreateUser(ctx, &nav.User{Username: "bob", Email: "alice@example.com", Role: nav.RoleViewer})
	assert.True(t, nav.IsConflict(err))

	err = m.CreateUser(ctx, &nav.User{Username: "eve", Email: "eve@example.com", Role: nav.Role("owner")})
	assert.True(t, nav.IsValidation(err))
}

func TestSettingsRoundTrip(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	cases := []struct {
		key   string
		value string
		typ   nav.SettingType
		want  interface{}
	}{
		{"title", "My Nav", nav.SettingString, "My Nav"},
		{"per_page", "24", nav.SettingNumber, float64(24)},
		{"open_new_tab", "true", nav.SettingBoolean, true},
		{"theme", `{"dark":true}`, nav.SettingJSON, map[string]interface{}{"dark": true}},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			require.NoError(t, m.PutSetting(ctx, &nav.Setting{Key: tc.key, Value: tc.value, Type: tc.typ}))
			got, err := m.GetSetting(ctx, tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Decode())
		})
	}

	// Malformed values decode to nil instead of failing.
	require.NoError(t, m.PutSetting(ctx, &nav.Setting{Key: "bad_num", Value: "abc", Type: nav.SettingNumber}))
	got, err := m.GetSetting(ctx, "bad_num")
	require.NoError(t, err)
	assert.Nil(t, got.Decode())

	// Re-put replaces in place, keeping the id.
	require.NoError(t, m.PutSetting(ctx, &nav.Setting{Key: "title", Value: "Renamed", Type: nav.SettingString}))
	first, err := m.GetSetting(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", first.Value)

	settings, _, err := m.ListSettings(ctx, SettingFilter{}, Page{Size: 100})
	require.NoError(t, err)
	for i := 1; i < len(settings); i++ {
		assert.True(t, settings[i-1].Key < settings[i].Key, "settings sorted by key")
	}
}

func TestRecordClick(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	cat := mustCreateCategory(t, m, "Dev")
	s := mustCreateSite(t, m, "a", &cat.ID, 1)

	ev := &nav.VisitEvent{ClientIP: "10.0.0.1"}
	require.NoError(t, m.RecordClick(ctx, s.ID, ev))
	assert.NotZero(t, ev.ID)
	require.NotNil(t, ev.CategoryID)
	assert.Equal(t, cat.ID, *ev.CategoryID)

	got, err := m.GetSite(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount)

	recent, err := m.RecentVisits(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a", recent[0].SiteName)

	// Missing and inactive sites both leave everything untouched.
	err = m.RecordClick(ctx, 999, &nav.VisitEvent{})
	assert.True(t, nav.IsNotFound(err))

	inactive := nav.StatusInactive
	_, err = m.UpdateSite(ctx, s.ID, SiteChanges{Status: &inactive})
	require.NoError(t, err)
	err = m.RecordClick(ctx, s.ID, &nav.VisitEvent{})
	assert.True(t, nav.IsNotFound(err))

	got, err = m.GetSite(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount)
}

func TestTrendUpserts(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()
	day := "2026-08-31"
	hour := 14

	for i := 0; i < 3; i++ {
		require.NoError(t, m.UpsertVisitTrend(ctx, day, nil))
		require.NoError(t, m.UpsertVisitTrend(ctx, day, &hour))
	}

	now, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	daily, err := m.DailyTrends(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Nil(t, daily[0].Hour)
	assert.Equal(t, int64(3), daily[0].VisitCount)
	assert.Equal(t, int64(3), daily[0].UniqueVisitors)

	hourly, err := m.HourlyTrends(ctx, day)
	require.NoError(t, err)
	require.Len(t, hourly, 1)
	require.NotNil(t, hourly[0].Hour)
	assert.Equal(t, 14, *hourly[0].Hour)
	assert.Equal(t, int64(3), hourly[0].VisitCount)
}

func TestDailyTrendsWindow(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()
	now, _ := time.Parse("2006-01-02", "2026-08-31")

	for _, day := range []string{"2026-08-20", "2026-08-26", "2026-08-31"} {
		require.NoError(t, m.UpsertVisitTrend(ctx, day, nil))
	}

	daily, err := m.DailyTrends(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, daily, 2, "only buckets inside the window")
	assert.Equal(t, "2026-08-26", daily[0].DateKey)
	assert.Equal(t, "2026-08-31", daily[1].DateKey)
}

func TestCategoryStatsRollup(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()
	now, _ := time.Parse("2006-01-02", "2026-08-31")

	cat := mustCreateCategory(t, m, "Dev")
	require.NoError(t, m.UpsertCategoryStat(ctx, cat.ID, "2026-08-30"))
	require.NoError(t, m.UpsertCategoryStat(ctx, cat.ID, "2026-08-31"))
	require.NoError(t, m.UpsertCategoryStat(ctx, cat.ID, "2026-08-31"))

	stats, err := m.CategoryStats(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Dev", stats[0].CategoryName)
	assert.Equal(t, int64(3), stats[0].ClickCount)
	assert.Equal(t, int64(3), stats[0].UniqueVisitors)
}

func TestOverviewCounts(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cat := mustCreateCategory(t, m, "Dev")
	s1 := mustCreateSite(t, m, "a", &cat.ID, 1)
	s2 := mustCreateSite(t, m, "b", nil, 2)
	inactive := nav.StatusInactive
	_, err := m.UpdateSite(ctx, s2.ID, SiteChanges{Status: &inactive})
	require.NoError(t, err)

	require.NoError(t, m.RecordClick(ctx, s1.ID, &nav.VisitEvent{}))
	require.NoError(t, m.RecordClick(ctx, s1.ID, &nav.VisitEvent{}))
	require.NoError(t, m.UpsertVisitTrend(ctx, nav.DateKey(now), nil))
	require.NoError(t, m.UpsertVisitTrend(ctx, nav.DateKey(now), nil))

	o, err := m.Overview(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ActiveSites, "inactive site excluded")
	assert.Equal(t, int64(1), o.ActiveCategories)
	assert.Equal(t, int64(2), o.TotalClicks)
	assert.Equal(t, int64(2), o.TodayVisits)
	assert.Equal(t, int64(2), o.MonthVisits)
}

func TestRankingByClicks(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	a := mustCreateSite(t, m, "a", nil, 1)
	b := mustCreateSite(t, m, "b", nil, 2)
	c := mustCreateSite(t, m, "c", nil, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.RecordClick(ctx, b.ID, &nav.VisitEvent{}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, m.RecordClick(ctx, c.ID, &nav.VisitEvent{}))
	}
	require.NoError(t, m.RecordClick(ctx, a.ID, &nav.VisitEvent{}))

	ranked, err := m.RankingByClicks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	// b and c tie on clicks; lower id wins.
	assert.Equal(t, b.ID, ranked[0].ID)
	assert.Equal(t, c.ID, ranked[1].ID)
}

func TestCategoryBreakdown(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	dev := mustCreateCategory(t, m, "Dev")
	news := mustCreateCategory(t, m, "News")
	s1 := mustCreateSite(t, m, "a", &dev.ID, 1)
	mustCreateSite(t, m, "b", &dev.ID, 2)
	mustCreateSite(t, m, "c", &news.ID, 3)
	require.NoError(t, m.RecordClick(ctx, s1.ID, &nav.VisitEvent{}))

	breakdown, err := m.CategoryBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, dev.ID, breakdown[0].CategoryID)
	assert.Equal(t, int64(2), breakdown[0].SiteCount)
	assert.Equal(t, int64(1), breakdown[0].Clicks)
	assert.Equal(t, int64(1), breakdown[1].SiteCount)
}

func TestActivityLogNewestFirst(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendActivity(ctx, &nav.ActivityLogEntry{
			UserID:     1,
			ActionType: nav.ActionCreate,
			TargetType: "site",
			Title:      fmt.Sprintf("entry %d", i),
		}))
	}

	entries, total, err := m.ListActivity(ctx, ActivityFilter{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 2", entries[0].Title)
	assert.Equal(t, "entry 0", entries[2].Title)

	update := nav.ActionUpdate
	entries, _, err = m.ListActivity(ctx, ActivityFilter{ActionType: &update}, Page{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentClicks(t *testing.T) {
	m := newEmpty(t)
	ctx := context.Background()
	s := mustCreateSite(t, m, "busy", nil, 1)

	const workers = 8
	const perWorker = 25
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perWorker; j++ {
				_ = m.RecordClick(ctx, s.ID, &nav.VisitEvent{})
				_ = m.UpsertVisitTrend(ctx, "2026-08-31", nil)
			}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	got, err := m.GetSite(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), got.ClickCount)

	now, _ := time.Parse("2006-01-02", "2026-08-31")
	daily, err := m.DailyTrends(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(workers*perWorker), daily[0].VisitCount)
}
