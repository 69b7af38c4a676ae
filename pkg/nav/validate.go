package nav

import (
	"net/url"
	"strings"
)

// ValidateSite checks the fields a site mutation must carry.
func ValidateSite(name, rawURL string) error {
	if strings.TrimSpace(name) == "" {
		return Validationf("site name is required")
	}
	if strings.TrimSpace(rawURL) == "" {
		return Validationf("site url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Validationf("site url %q is not a valid URL", rawURL)
	}
	return nil
}

// ValidateCategory checks the fields a category mutation must carry.
func ValidateCategory(name string) error {
	if strings.TrimSpace(name) == "" {
		return Validationf("category name is required")
	}
	return nil
}

// ValidateUser checks the fields a user mutation must carry.
func ValidateUser(username, email string, role Role) error {
	if strings.TrimSpace(username) == "" {
		return Validationf("username is required")
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return Validationf("email %q is not a valid address", email)
	}
	if !role.Valid() {
		return Validationf("unknown role %q", role)
	}
	return nil
}

// ValidateSetting checks the fields a setting write must carry.
func ValidateSetting(key string, typ SettingType) error {
	if strings.TrimSpace(key) == "" {
		return Validationf("setting key is required")
	}
	if !typ.Valid() {
		return Validationf("unknown setting type %q", typ)
	}
	return nil
}
