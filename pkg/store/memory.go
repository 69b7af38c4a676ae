package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/guluwater/navadmin/pkg/nav"
)

// MemoryStore is the in-process fallback backend. All state is owned by the
// struct; there are no package-level variables or counters. A single RWMutex
// guards every map, which gives RecordClick the same all-or-nothing behavior
// the relational backend gets from a transaction.
type MemoryStore struct {
	mu sync.RWMutex

	sites      map[int64]*nav.Site
	categories map[int64]*nav.Category
	users      map[int64]*nav.User
	settings   map[string]*nav.Setting

	visits     []*nav.VisitEvent
	trends     map[trendKey]*nav.VisitTrendBucket
	catStats   map[catStatKey]*nav.CategoryStatBucket
	activities []*nav.ActivityLogEntry

	// Monotonic id counters, one per entity kind.
	nextSite     int64
	nextCategory int64
	nextUser     int64
	nextSetting  int64
	nextVisit    int64
	nextActivity int64
}

type trendKey struct {
	dateKey string
	hour    int // -1 for the whole-day bucket
}

type catStatKey struct {
	categoryID int64
	dateKey    string
}

// NewMemoryStore creates a fallback store populated with the given seed.
// A nil seed installs the canonical default dataset.
func NewMemoryStore(seed *SeedData) (*MemoryStore, error) {
	if seed == nil {
		seed = DefaultSeed()
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}

	m := &MemoryStore{
		sites:      make(map[int64]*nav.Site),
		categories: make(map[int64]*nav.Category),
		users:      make(map[int64]*nav.User),
		settings:   make(map[string]*nav.Setting),
		trends:     make(map[trendKey]*nav.VisitTrendBucket),
		catStats:   make(map[catStatKey]*nav.CategoryStatBucket),
	}

	now := time.Now().UTC()
	byName := make(map[string]int64, len(seed.Categories))
	for _, sc := range seed.Categories {
		m.nextCategory++
		id := m.nextCategory
		m.categories[id] = &nav.Category{
			ID:          id,
			Name:        sc.Name,
			Description: sc.Description,
			Icon:        sc.Icon,
			SortOrder:   sc.SortOrder,
			Status:      nav.StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		byName[sc.Name] = id
	}
	for _, ss := range seed.Sites {
		m.nextSite++
		site := &nav.Site{
			ID:          m.nextSite,
			Name:        ss.Name,
			URL:         ss.URL,
			Description: ss.Description,
			Icon:        ss.Icon,
			SortOrder:   ss.SortOrder,
			Status:      nav.StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if ss.Category != "" {
			catID := byName[ss.Category]
			site.CategoryID = &catID
		}
		m.sites[site.ID] = site
	}
	for _, su := range seed.Users {
		m.nextUser++
		m.users[m.nextUser] = &nav.User{
			ID:           m.nextUser,
			Username:     su.Username,
			Email:        su.Email,
			PasswordHash: su.PasswordHash,
			Role:         nav.Role(su.Role),
			Status:       nav.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	for _, st := range seed.Settings {
		m.nextSetting++
		m.settings[st.Key] = &nav.Setting{
			ID:          m.nextSetting,
			Key:         st.Key,
			Value:       st.Value,
			Type:        nav.SettingType(st.Type),
			Description: st.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return m, nil
}

// Backend implements Store.Backend.
func (m *MemoryStore) Backend() Backend { return BackendFallback }

// Ping implements Store.Ping. The fallback is always reachable.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Store.Close.
func (m *MemoryStore) Close() error { return nil }

func matchesSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// paginate returns one page of items along with the total matching count.
func paginate[T any](items []T, p Page) ([]T, int64) {
	total := int64(len(items))
	off := p.Offset()
	if off >= len(items) {
		return []T{}, total
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-off)
	copy(out, items[off:end])
	return out, total
}

// Sites

func (m *MemoryStore) ListSites(ctx context.Context, f SiteFilter, p Page) ([]nav.Site, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []nav.Site
	for _, s := range m.sites {
		if !matchesSearch(f.Search, s.Name, s.Description, s.URL) {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.CategoryID != nil && (s.CategoryID == nil || *s.CategoryID != *f.CategoryID) {
			continue
		}
		matched = append(matched, *s)
	}
	// sort_order ascending, insertion order (== id order) breaking ties
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SortOrder != matched[j].SortOrder {
			return matched[i].SortOrder < matched[j].SortOrder
		}
		return matched[i].ID < matched[j].ID
	})
	page, total := paginate(matched, p)
	return page, total, nil
}

func (m *MemoryStore) GetSite(ctx context.Context, id int64) (*nav.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, nav.NotFoundf("site %d not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CreateSite(ctx context.Context, s *nav.Site) error {
	if err := nav.ValidateSite(s.Name, s.URL); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.CategoryID != nil {
		if _, ok := m.categories[*s.CategoryID]; !ok {
			return nav.Validationf("category %d does not exist", *s.CategoryID)
		}
	}
	if s.Status == "" {
		s.Status = nav.StatusActive
	}
	m.nextSite++
	s.ID = m.nextSite
	s.ClickCount = 0
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.sites[s.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateSite(ctx context.Context, id int64, ch SiteChanges) (*nav.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sites[id]
	if !ok {
		return nil, nav.NotFoundf("site %d not found", id)
	}
	name, url := s.Name, s.URL
	if ch.Name != nil {
		name = *ch.Name
	}
	if ch.URL != nil {
		url = *ch.URL
	}
	if err := nav.ValidateSite(name, url); err != nil {
		return nil, err
	}
	if ch.CategoryID != nil && !ch.ClearCategory {
		if _, ok := m.categories[*ch.CategoryID]; !ok {
			return nil, nav.Validationf("category %d does not exist", *ch.CategoryID)
		}
	}

	s.Name, s.URL = name, url
	if ch.Description != nil {
		s.Description = *ch.Description
	}
	if ch.Icon != nil {
		s.Icon = *ch.Icon
	}
	if ch.ClearCategory {
		s.CategoryID = nil
	} else if ch.CategoryID != nil {
		id := *ch.CategoryID
		s.CategoryID = &id
	}
	if ch.SortOrder != nil {
		s.SortOrder = *ch.SortOrder
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, nav.Validationf("unknown status %q", *ch.Status)
		}
		s.Status = *ch.Status
	}
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) DeleteSite(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[id]; !ok {
		return nav.NotFoundf("site %d not found", id)
	}
	delete(m.sites, id)
	return nil
}

// Categories

func (m *MemoryStore) ListCategories(ctx context.Context, f CategoryFilter, p Page) ([]nav.Category, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []nav.Category
	for _, c := range m.categories {
		if !matchesSearch(f.Search, c.Name, c.Description) {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SortOrder != matched[j].SortOrder {
			return matched[i].SortOrder < matched[j].SortOrder
		}
		return matched[i].ID < matched[j].ID
	})
	page, total := paginate(matched, p)
	return page, total, nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id int64) (*nav.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nav.NotFoundf("category %d not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c *nav.Category) error {
	if err := nav.ValidateCategory(c.Name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return nav.Conflictf("category name %q already exists", c.Name)
		}
	}
	if c.Status == "" {
		c.Status = nav.StatusActive
	}
	m.nextCategory++
	c.ID = m.nextCategory
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateCategory(ctx context.Context, id int64, ch CategoryChanges) (*nav.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, nav.NotFoundf("category %d not found", id)
	}
	if ch.Name != nil {
		if err := nav.ValidateCategory(*ch.Name); err != nil {
			return nil, err
		}
		for _, existing := range m.categories {
			if existing.ID != id && existing.Name == *ch.Name {
				return nil, nav.Conflictf("category name %q already exists", *ch.Name)
			}
		}
		c.Name = *ch.Name
	}
	if ch.Description != nil {
		c.Description = *ch.Description
	}
	if ch.Icon != nil {
		c.Icon = *ch.Icon
	}
	if ch.SortOrder != nil {
		c.SortOrder = *ch.SortOrder
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, nav.Validationf("unknown status %q", *ch.Status)
		}
		c.Status = *ch.Status
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

// DeleteCategory refuses to delete a category that still has dependent
// sites. The reference is weak, but removal is guarded rather than cascaded
// or silently cleared.
func (m *MemoryStore) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return nav.NotFoundf("category %d not found", id)
	}
	for _, s := range m.sites {
		if s.CategoryID != nil && *s.CategoryID == id {
			return nav.Conflictf("category %d still has dependent sites", id)
		}
	}
	delete(m.categories, id)
	return nil
}

// Users

func (m *MemoryStore) ListUsers(ctx context.Context, f UserFilter, p Page) ([]nav.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []nav.User
	for _, u := range m.users {
		if !matchesSearch(f.Search, u.Username, u.Email) {
			continue
		}
		if f.Status != nil && u.Status != *f.Status {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	page, total := paginate(matched, p)
	return page, total, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*nav.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nav.NotFoundf("user %d not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*nav.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nav.NotFoundf("user %q not found", username)
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *nav.User) error {
	if err := nav.ValidateUser(u.Username, u.Email, u.Role); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return nav.Conflictf("username %q already exists", u.Username)
		}
		if existing.Email == u.Email {
			return nav.Conflictf("email %q already exists", u.Email)
		}
	}
	if u.Status == "" {
		u.Status = nav.StatusActive
	}
	m.nextUser++
	u.ID = m.nextUser
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, id int64, ch UserChanges) (*nav.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nav.NotFoundf("user %d not found", id)
	}
	username, email, role := u.Username, u.Email, u.Role
	if ch.Username != nil {
		username = *ch.Username
	}
	if ch.Email != nil {
		email = *ch.Email
	}
	if ch.Role != nil {
		role = *ch.Role
	}
	if err := nav.ValidateUser(username, email, role); err != nil {
		return nil, err
	}
	for _, existing := range m.users {
		if existing.ID == id {
			continue
		}
		if existing.Username == username {
			return nil, nav.Conflictf("username %q already exists", username)
		}
		if existing.Email == email {
			return nil, nav.Conflictf("email %q already exists", email)
		}
	}

	u.Username, u.Email, u.Role = username, email, role
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, nav.Validationf("unknown status %q", *ch.Status)
		}
		u.Status = *ch.Status
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return nav.NotFoundf("user %d not found", id)
	}
	delete(m.users, id)
	return nil
}

// Settings

func (m *MemoryStore) ListSettings(ctx context.Context, f SettingFilter, p Page) ([]nav.Setting, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []nav.Setting
	for _, s := range m.settings {
		if !matchesSearch(f.Search, s.Key, s.Description) {
			continue
		}
		matched = append(matched, *s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	page, total := paginate(matched, p)
	return page, total, nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, key string) (*nav.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[key]
	if !ok {
		return nil, nav.NotFoundf("setting %q not found", key)
	}
	cp := *s
	return &cp, nil
}

// PutSetting inserts a setting or, when the key already exists, updates it
// in place. Duplicate-key writes are deliberately idempotent for settings,
// unlike users and categories where duplicates are conflicts.
func (m *MemoryStore) PutSetting(ctx context.Context, s *nav.Setting) error {
	if err := nav.ValidateSetting(s.Key, s.Type); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.settings[s.Key]; ok {
		existing.Value = s.Value
		existing.Type = s.Type
		existing.Description = s.Description
		existing.UpdatedAt = now
		*s = *existing
		return nil
	}
	m.nextSetting++
	s.ID = m.nextSetting
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.settings[s.Key] = &cp
	return nil
}

func (m *MemoryStore) DeleteSetting(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settings[key]; !ok {
		return nav.NotFoundf("setting %q not found", key)
	}
	delete(m.settings, key)
	return nil
}

// Click pipeline

// RecordClick increments the site's click counter and appends the visit log
// row as one critical section. A missing or inactive site leaves the store
// completely untouched.
func (m *MemoryStore) RecordClick(ctx context.Context, siteID int64, ev *nav.VisitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sites[siteID]
	if !ok || s.Status != nav.StatusActive {
		return nav.NotFoundf("site %d not found or inactive", siteID)
	}

	s.ClickCount++
	s.UpdatedAt = time.Now().UTC()

	m.nextVisit++
	ev.ID = m.nextVisit
	ev.SiteID = siteID
	ev.CategoryID = nil
	if s.CategoryID != nil {
		id := *s.CategoryID
		ev.CategoryID = &id
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	cp := *ev
	m.visits = append(m.visits, &cp)
	return nil
}

func (m *MemoryStore) UpsertVisitTrend(ctx context.Context, dateKey string, hour *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := trendKey{dateKey: dateKey, hour: -1}
	if hour != nil {
		key.hour = *hour
	}
	b, ok := m.trends[key]
	if !ok {
		b = &nav.VisitTrendBucket{DateKey: dateKey}
		if hour != nil {
			h := *hour
			b.Hour = &h
		}
		m.trends[key] = b
	}
	b.VisitCount++
	b.PageViews++
	// Simplified semantics carried over from the source system: one
	// "unique visitor" per event, not a distinct-IP count.
	b.UniqueVisitors++
	return nil
}

func (m *MemoryStore) UpsertCategoryStat(ctx context.Context, categoryID int64, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := catStatKey{categoryID: categoryID, dateKey: dateKey}
	b, ok := m.catStats[key]
	if !ok {
		b = &nav.CategoryStatBucket{CategoryID: categoryID, DateKey: dateKey}
		m.catStats[key] = b
	}
	b.ClickCount++
	b.UniqueVisitors++
	return nil
}

// Stats reads

func (m *MemoryStore) Overview(ctx context.Context, now time.Time) (*OverviewCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var o OverviewCounts
	for _, s := range m.sites {
		if s.Status == nav.StatusActive {
			o.ActiveSites++
		}
		o.TotalClicks += s.ClickCount
	}
	for _, c := range m.categories {
		if c.Status == nav.StatusActive {
			o.ActiveCategories++
		}
	}
	o.Users = int64(len(m.users))

	today := nav.DateKey(now)
	monthPrefix := now.Format("2006-01")
	for key, b := range m.trends {
		if key.hour != -1 {
			continue
		}
		if key.dateKey == today {
			o.TodayVisits = b.VisitCount
		}
		if strings.HasPrefix(key.dateKey, monthPrefix) {
			o.MonthVisits += b.VisitCount
		}
	}
	return &o, nil
}

func (m *MemoryStore) RecentVisits(ctx context.Context, limit int) ([]VisitDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]VisitDetail, 0, limit)
	for i := len(m.visits) - 1; i >= 0 && len(out) < limit; i-- {
		v := m.visits[i]
		d := VisitDetail{VisitEvent: *v}
		if s, ok := m.sites[v.SiteID]; ok {
			d.SiteName = s.Name
			d.SiteURL = s.URL
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) DailyTrends(ctx context.Context, days int, now time.Time) ([]nav.VisitTrendBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := nav.DateKey(now.AddDate(0, 0, -(days - 1)))
	var out []nav.VisitTrendBucket
	for key, b := range m.trends {
		if key.hour != -1 || key.dateKey < cutoff {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out, nil
}

func (m *MemoryStore) HourlyTrends(ctx context.Context, dateKey string) ([]nav.VisitTrendBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []nav.VisitTrendBucket
	for key, b := range m.trends {
		if key.hour == -1 || key.dateKey != dateKey {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Hour < *out[j].Hour })
	return out, nil
}

func (m *MemoryStore) CategoryStats(ctx context.Context, days int, now time.Time) ([]nav.CategoryStatBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := nav.DateKey(now.AddDate(0, 0, -(days - 1)))
	summed := make(map[int64]*nav.CategoryStatBucket)
	for key, b := range m.catStats {
		if key.dateKey < cutoff {
			continue
		}
		agg, ok := summed[key.categoryID]
		if !ok {
			agg = &nav.CategoryStatBucket{CategoryID: key.categoryID}
			if c, found := m.categories[key.categoryID]; found {
				agg.CategoryName = c.Name
				agg.CategoryIcon = c.Icon
			}
			summed[key.categoryID] = agg
		}
		agg.ClickCount += b.ClickCount
		agg.UniqueVisitors += b.UniqueVisitors
	}
	out := make([]nav.CategoryStatBucket, 0, len(summed))
	for _, agg := range summed {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClickCount != out[j].ClickCount {
			return out[i].ClickCount > out[j].ClickCount
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (m *MemoryStore) rankedSite(s *nav.Site) RankedSite {
	r := RankedSite{
		ID:         s.ID,
		Name:       s.Name,
		URL:        s.URL,
		Icon:       s.Icon,
		ClickCount: s.ClickCount,
	}
	if s.CategoryID != nil {
		if c, ok := m.categories[*s.CategoryID]; ok {
			r.CategoryName = c.Name
			r.CategoryIcon = c.Icon
		}
	}
	return r
}

func (m *MemoryStore) RankingByClicks(ctx context.Context, limit int) ([]RankedSite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ranked []RankedSite
	for _, s := range m.sites {
		if s.Status != nav.StatusActive {
			continue
		}
		ranked = append(ranked, m.rankedSite(s))
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ClickCount != ranked[j].ClickCount {
			return ranked[i].ClickCount > ranked[j].ClickCount
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MemoryStore) RankingByRecent(ctx context.Context, limit, days int, now time.Time) ([]RankedSite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := now.AddDate(0, 0, -days)
	counts := make(map[int64]int64)
	for _, v := range m.visits {
		if v.Timestamp.Before(cutoff) {
			continue
		}
		counts[v.SiteID]++
	}
	var ranked []RankedSite
	for _, s := range m.sites {
		if s.Status != nav.StatusActive {
			continue
		}
		r := m.rankedSite(s)
		r.RecentVisits = counts[s.ID]
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RecentVisits != ranked[j].RecentVisits {
			return ranked[i].RecentVisits > ranked[j].RecentVisits
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MemoryStore) CategoryBreakdown(ctx context.Context) ([]CategoryAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[int64]*CategoryAggregate)
	var out []CategoryAggregate
	for _, c := range m.categories {
		if c.Status != nav.StatusActive {
			continue
		}
		byID[c.ID] = &CategoryAggregate{CategoryID: c.ID, Name: c.Name, Icon: c.Icon}
	}
	for _, s := range m.sites {
		if s.Status != nav.StatusActive || s.CategoryID == nil {
			continue
		}
		if agg, ok := byID[*s.CategoryID]; ok {
			agg.SiteCount++
			agg.Clicks += s.ClickCount
		}
	}
	for _, agg := range byID {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SiteCount != out[j].SiteCount {
			return out[i].SiteCount > out[j].SiteCount
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

// ReconcileDay recomputes the buckets for dateKey from the raw visit slice.
// Existing buckets for that day are discarded first, so repeated runs
// converge on the same values.
func (m *MemoryStore) ReconcileDay(ctx context.Context, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.trends {
		if key.dateKey == dateKey {
			delete(m.trends, key)
		}
	}
	for key := range m.catStats {
		if key.dateKey == dateKey {
			delete(m.catStats, key)
		}
	}

	for _, v := range m.visits {
		if nav.DateKey(v.Timestamp) != dateKey {
			continue
		}
		hour := v.Timestamp.Hour()
		for _, key := range []trendKey{{dateKey: dateKey, hour: -1}, {dateKey: dateKey, hour: hour}} {
			b, ok := m.trends[key]
			if !ok {
				b = &nav.VisitTrendBucket{DateKey: dateKey}
				if key.hour != -1 {
					h := key.hour
					b.Hour = &h
				}
				m.trends[key] = b
			}
			b.VisitCount++
			b.PageViews++
			b.UniqueVisitors++
		}
		if v.CategoryID != nil {
			key := catStatKey{categoryID: *v.CategoryID, dateKey: dateKey}
			b, ok := m.catStats[key]
			if !ok {
				b = &nav.CategoryStatBucket{CategoryID: *v.CategoryID, DateKey: dateKey}
				m.catStats[key] = b
			}
			b.ClickCount++
			b.UniqueVisitors++
		}
	}
	return nil
}

// Activity log

func (m *MemoryStore) AppendActivity(ctx context.Context, e *nav.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextActivity++
	e.ID = m.nextActivity
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	m.activities = append(m.activities, &cp)
	return nil
}

func (m *MemoryStore) ListActivity(ctx context.Context, f ActivityFilter, p Page) ([]nav.ActivityLogEntry, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []nav.ActivityLogEntry
	for i := len(m.activities) - 1; i >= 0; i-- {
		e := m.activities[i]
		if f.UserID != nil && e.UserID != *f.UserID {
			continue
		}
		if f.ActionType != nil && e.ActionType != *f.ActionType {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		matched = append(matched, *e)
	}
	page, total := paginate(matched, p)
	return page, total, nil
}
