package nav

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status marks an entity as visible to the public site or hidden from it.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Role represents the authority level of a panel user. Authentication and
// authorization happen outside this core; the store only persists the value.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role value.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleViewer
}

// Site is a bookmarked destination shown on the navigation page.
type Site struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	SortOrder   int       `json:"sort_order"`
	Status      Status    `json:"status"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups sites. Site.CategoryID is a weak reference: deleting a
// category never destroys its sites, and the store refuses the delete while
// dependent sites exist.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	SortOrder   int       `json:"sort_order"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a panel account. PasswordHash is opaque to the core.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SettingType declares how a setting's text value should be decoded.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

// Valid reports whether t is a known setting type.
func (t SettingType) Valid() bool {
	switch t {
	case SettingString, SettingNumber, SettingBoolean, SettingJSON:
		return true
	}
	return false
}

// Setting is a key/value configuration row. The value is stored as text and
// decoded on read according to the declared type.
type Setting struct {
	ID          int64       `json:"id"`
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Decode returns the setting value under its declared type. Malformed
// persisted values decode to nil rather than failing, so a bad row can
// never break a read path.
func (s *Setting) Decode() interface{} {
	switch s.Type {
	case SettingNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64); err == nil {
			return n
		}
		return nil
	case SettingBoolean:
		switch strings.ToLower(strings.TrimSpace(s.Value)) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
		return nil
	case SettingJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil
		}
		return v
	default:
		return s.Value
	}
}

// VisitEvent is a single recorded page visit. Events are append-only log
// rows; they are never updated after being written.
type VisitEvent struct {
	ID         int64     `json:"id,omitempty"`
	SiteID     int64     `json:"site_id"`
	CategoryID *int64    `json:"category_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	ClientIP   string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
}

// VisitTrendBucket is a precomputed visit rollup for one day or one hour.
// Hour == nil denotes the whole-day row; both the day row and the hour row
// are written on every event (dual-write, neither is derived from the other).
type VisitTrendBucket struct {
	DateKey        string `json:"date"`
	Hour           *int   `json:"hour,omitempty"`
	VisitCount     int64  `json:"visits"`
	UniqueVisitors int64  `json:"unique_visitors"`
	PageViews      int64  `json:"page_views"`
}

// CategoryStatBucket is a per-category, per-day click rollup.
type CategoryStatBucket struct {
	CategoryID     int64  `json:"category_id"`
	CategoryName   string `json:"category_name,omitempty"`
	CategoryIcon   string `json:"category_icon,omitempty"`
	DateKey        string `json:"date"`
	ClickCount     int64  `json:"clicks"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// ActionType categorizes an activity log entry.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionLogin  ActionType = "login"
	ActionLogout ActionType = "logout"
)

// ActivityLogEntry is one row of the append-only audit trail. The core only
// appends and reads; entries are never mutated or deleted.
type ActivityLogEntry struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ActionType  ActionType `json:"action_type"`
	TargetType  string     `json:"target_type"`
	TargetID    *int64     `json:"target_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DateKey formats t as the canonical bucket date key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
