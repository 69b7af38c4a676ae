package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

const siteColumns = "id, name, url, description, icon, category_id, sort_order, status, click_count, created_at, updated_at"

func scanSite(row interface{ Scan(...interface{}) error }) (*nav.Site, error) {
	var s nav.Site
	var categoryID sql.NullInt64
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.Description, &s.Icon, &categoryID,
		&s.SortOrder, &s.Status, &s.ClickCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		s.CategoryID = &categoryID.Int64
	}
	return &s, nil
}

// condition accumulates a WHERE clause with positional placeholders.
type condition struct {
	clauses []string
	args    []interface{}
}

func (c *condition) add(expr string, args ...interface{}) {
	for _, a := range args {
		c.args = append(c.args, a)
		expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(c.args)), 1)
	}
	c.clauses = append(c.clauses, expr)
}

func (c *condition) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Sites

func (s *Store) ListSites(ctx context.Context, f store.SiteFilter, p store.Page) ([]nav.Site, int64, error) {
	var cond condition
	if f.Search != "" {
		cond.add("(name ILIKE ? OR description ILIKE ? OR url ILIKE ?)",
			like(f.Search), like(f.Search), like(f.Search))
	}
	if f.Status != nil {
		cond.add("status = ?", string(*f.Status))
	}
	if f.CategoryID != nil {
		cond.add("category_id = ?", *f.CategoryID)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM sites" + cond.where()
	if err := s.db.QueryRowContext(ctx, countQuery, cond.args...).Scan(&total); err != nil {
		return nil, 0, nav.TransientStore("failed to count sites", err)
	}

	query := fmt.Sprintf("SELECT %s FROM sites%s ORDER BY sort_order ASC, id ASC LIMIT $%d OFFSET $%d",
		siteColumns, cond.where(), len(cond.args)+1, len(cond.args)+2)
	args := append(cond.args, p.Limit(), p.Offset())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, nav.TransientStore("failed to list sites", err)
	}
	defer rows.Close()

	sites := make([]nav.Site, 0, p.Limit())
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, 0, nav.TransientStore("failed to scan site", err)
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nav.TransientStore("failed to read sites", err)
	}
	return sites, total, nil
}

func (s *Store) GetSite(ctx context.Context, id int64) (*nav.Site, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM sites WHERE id = $1", siteColumns), id)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("site %d not found", id)
	}
	if err != nil {
		return nil, nav.TransientStore("failed to get site", err)
	}
	return site, nil
}

func (s *Store) CreateSite(ctx context.Context, site *nav.Site) error {
	if err := nav.ValidateSite(site.Name, site.URL); err != nil {
		return err
	}
	if site.CategoryID != nil {
		if _, err := s.GetCategory(ctx, *site.CategoryID); err != nil {
			if nav.IsNotFound(err) {
				return nav.Validationf("category %d does not exist", *site.CategoryID)
			}
			return err
		}
	}
	if site.Status == "" {
		site.Status = nav.StatusActive
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sites (name, url, description, icon, category_id, sort_order, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, click_count, created_at, updated_at`,
		site.Name, site.URL, site.Description, site.Icon, nullableID(site.CategoryID), site.SortOrder, string(site.Status),
	).Scan(&site.ID, &site.ClickCount, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return mapWriteError(err, fmt.Sprintf("site %q already exists", site.Name))
	}
	return nil
}

func (s *Store) UpdateSite(ctx context.Context, id int64, ch store.SiteChanges) (*nav.Site, error) {
	current, err := s.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	name, url := current.Name, current.URL
	if ch.Name != nil {
		name = *ch.Name
	}
	if ch.URL != nil {
		url = *ch.URL
	}
	if err := nav.ValidateSite(name, url); err != nil {
		return nil, err
	}
	if ch.Status != nil && !ch.Status.Valid() {
		return nil, nav.Validationf("unknown status %q", *ch.Status)
	}
	if ch.CategoryID != nil && !ch.ClearCategory {
		if _, err := s.GetCategory(ctx, *ch.CategoryID); err != nil {
			if nav.IsNotFound(err) {
				return nil, nav.Validationf("category %d does not exist", *ch.CategoryID)
			}
			return nil, err
		}
	}

	current.Name, current.URL = name, url
	if ch.Description != nil {
		current.Description = *ch.Description
	}
	if ch.Icon != nil {
		current.Icon = *ch.Icon
	}
	if ch.ClearCategory {
		current.CategoryID = nil
	} else if ch.CategoryID != nil {
		current.CategoryID = ch.CategoryID
	}
	if ch.SortOrder != nil {
		current.SortOrder = *ch.SortOrder
	}
	if ch.Status != nil {
		current.Status = *ch.Status
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE sites SET name = $1, url = $2, description = $3, icon = $4,
		   category_id = $5, sort_order = $6, status = $7, updated_at = now()
		 WHERE id = $8
		 RETURNING updated_at`,
		current.Name, current.URL, current.Description, current.Icon,
		nullableID(current.CategoryID), current.SortOrder, string(current.Status), id,
	).Scan(&current.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("site %d not found", id)
	}
	if err != nil {
		return nil, mapWriteError(err, fmt.Sprintf("site %q already exists", current.Name))
	}
	return current, nil
}

func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sites WHERE id = $1", id)
	if err != nil {
		return nav.TransientStore("failed to delete site", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nav.NotFoundf("site %d not found", id)
	}
	return nil
}

// Categories

const categoryColumns = "id, name, description, icon, sort_order, status, created_at, updated_at"

func scanCategory(row interface{ Scan(...interface{}) error }) (*nav.Category, error) {
	var c nav.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, f store.CategoryFilter, p store.Page) ([]nav.Category, int64, error) {
	var cond condition
	if f.Search != "" {
		cond.add("(name ILIKE ? OR description ILIKE ?)", like(f.Search), like(f.Search))
	}
	if f.Status != nil {
		cond.add("status = ?", string(*f.Status))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories"+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, nav.TransientStore("failed to count categories", err)
	}

	query := fmt.Sprintf("SELECT %s FROM categories%s ORDER BY sort_order ASC, id ASC LIMIT $%d OFFSET $%d",
		categoryColumns, cond.where(), len(cond.args)+1, len(cond.args)+2)
	args := append(cond.args, p.Limit(), p.Offset())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, nav.TransientStore("failed to list categories", err)
	}
	defer rows.Close()

	categories := make([]nav.Category, 0, p.Limit())
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, nav.TransientStore("failed to scan category", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nav.TransientStore("failed to read categories", err)
	}
	return categories, total, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*nav.Category, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM categories WHERE id = $1", categoryColumns), id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("category %d not found", id)
	}
	if err != nil {
		return nil, nav.TransientStore("failed to get category", err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *nav.Category) error {
	if err := nav.ValidateCategory(c.Name); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = nav.StatusActive
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, description, icon, sort_order, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.Icon, c.SortOrder, string(c.Status),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapWriteError(err, fmt.Sprintf("category name %q already exists", c.Name))
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, ch store.CategoryChanges) (*nav.Category, error) {
	current, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.Name != nil {
		if err := nav.ValidateCategory(*ch.Name); err != nil {
			return nil, err
		}
		current.Name = *ch.Name
	}
	if ch.Description != nil {
		current.Description = *ch.Description
	}
	if ch.Icon != nil {
		current.Icon = *ch.Icon
	}
	if ch.SortOrder != nil {
		current.SortOrder = *ch.SortOrder
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, nav.Validationf("unknown status %q", *ch.Status)
		}
		current.Status = *ch.Status
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE categories SET name = $1, description = $2, icon = $3,
		   sort_order = $4, status = $5, updated_at = now()
		 WHERE id = $6
		 RETURNING updated_at`,
		current.Name, current.Description, current.Icon, current.SortOrder, string(current.Status), id,
	).Scan(&current.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("category %d not found", id)
	}
	if err != nil {
		return nil, mapWriteError(err, fmt.Sprintf("category name %q already exists", current.Name))
	}
	return current, nil
}

// DeleteCategory refuses while dependent sites exist. The count check and
// the delete are not in one transaction; the weak reference makes a lost
// race harmless (sites keep a dangling-free NULL via ON DELETE SET NULL).
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	var dependents int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites WHERE category_id = $1", id).Scan(&dependents)
	if err != nil {
		return nav.TransientStore("failed to count dependent sites", err)
	}
	if dependents > 0 {
		return nav.Conflictf("category %d still has dependent sites", id)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return nav.TransientStore("failed to delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nav.NotFoundf("category %d not found", id)
	}
	return nil
}

// Users

const userColumns = "id, username, email, password_hash, role, status, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*nav.User, error) {
	var u nav.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter, p store.Page) ([]nav.User, int64, error) {
	var cond condition
	if f.Search != "" {
		cond.add("(username ILIKE ? OR email ILIKE ?)", like(f.Search), like(f.Search))
	}
	if f.Status != nil {
		cond.add("status = ?", string(*f.Status))
	}
	if f.Role != nil {
		cond.add("role = ?", string(*f.Role))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, nav.TransientStore("failed to count users", err)
	}

	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY id ASC LIMIT $%d OFFSET $%d",
		userColumns, cond.where(), len(cond.args)+1, len(cond.args)+2)
	args := append(cond.args, p.Limit(), p.Offset())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, nav.TransientStore("failed to list users", err)
	}
	defer rows.Close()

	users := make([]nav.User, 0, p.Limit())
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, nav.TransientStore("failed to scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nav.TransientStore("failed to read users", err)
	}
	return users, total, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*nav.User, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, nav.TransientStore("failed to get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*nav.User, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns), username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("user %q not found", username)
	}
	if err != nil {
		return nil, nav.TransientStore("failed to get user", err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *nav.User) error {
	if err := nav.ValidateUser(u.Username, u.Email, u.Role); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = nav.StatusActive
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, string(u.Role), string(u.Status),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapWriteError(err, fmt.Sprintf("username %q or email %q already exists", u.Username, u.Email))
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, ch store.UserChanges) (*nav.User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.Username != nil {
		current.Username = *ch.Username
	}
	if ch.Email != nil {
		current.Email = *ch.Email
	}
	if ch.Role != nil {
		current.Role = *ch.Role
	}
	if err := nav.ValidateUser(current.Username, current.Email, current.Role); err != nil {
		return nil, err
	}
	if ch.PasswordHash != nil {
		current.PasswordHash = *ch.PasswordHash
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, nav.Validationf("unknown status %q", *ch.Status)
		}
		current.Status = *ch.Status
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE users SET username = $1, email = $2, password_hash = $3,
		   role = $4, status = $5, updated_at = now()
		 WHERE id = $6
		 RETURNING updated_at`,
		current.Username, current.Email, current.PasswordHash, string(current.Role), string(current.Status), id,
	).Scan(&current.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, mapWriteError(err, fmt.Sprintf("username %q or email %q already exists", current.Username, current.Email))
	}
	return current, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return nav.TransientStore("failed to delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nav.NotFoundf("user %d not found", id)
	}
	return nil
}

// Settings

const settingColumns = "id, key, value, type, description, created_at, updated_at"

func scanSetting(row interface{ Scan(...interface{}) error }) (*nav.Setting, error) {
	var st nav.Setting
	err := row.Scan(&st.ID, &st.Key, &st.Value, &st.Type, &st.Description, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListSettings(ctx context.Context, f store.SettingFilter, p store.Page) ([]nav.Setting, int64, error) {
	var cond condition
	if f.Search != "" {
		cond.add("(key ILIKE ? OR description ILIKE ?)", like(f.Search), like(f.Search))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings"+cond.where(), cond.args...).Scan(&total); err != nil {
		return nil, 0, nav.TransientStore("failed to count settings", err)
	}

	query := fmt.Sprintf("SELECT %s FROM settings%s ORDER BY key ASC LIMIT $%d OFFSET $%d",
		settingColumns, cond.where(), len(cond.args)+1, len(cond.args)+2)
	args := append(cond.args, p.Limit(), p.Offset())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, nav.TransientStore("failed to list settings", err)
	}
	defer rows.Close()

	settings := make([]nav.Setting, 0, p.Limit())
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, 0, nav.TransientStore("failed to scan setting", err)
		}
		settings = append(settings, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, nav.TransientStore("failed to read settings", err)
	}
	return settings, total, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (*nav.Setting, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM settings WHERE key = $1", settingColumns), key)
	st, err := scanSetting(row)
	if err == sql.ErrNoRows {
		return nil, nav.NotFoundf("setting %q not found", key)
	}
	if err != nil {
		return nil, nav.TransientStore("failed to get setting", err)
	}
	return st, nil
}

// PutSetting upserts on the key. Duplicate-key writes are idempotent here,
// unlike users and categories where duplicates are conflicts.
func (s *Store) PutSetting(ctx context.Context, st *nav.Setting) error {
	if err := nav.ValidateSetting(st.Key, st.Type); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO settings (key, value, type, description)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		   value = EXCLUDED.value,
		   type = EXCLUDED.type,
		   description = EXCLUDED.description,
		   updated_at = now()
		 RETURNING id, created_at, updated_at`,
		st.Key, st.Value, string(st.Type), st.Description,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nav.TransientStore("failed to put setting", err)
	}
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = $1", key)
	if err != nil {
		return nav.TransientStore("failed to delete setting", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nav.NotFoundf("setting %q not found", key)
	}
	return nil
}

func like(search string) string { return "%" + search + "%" }

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
