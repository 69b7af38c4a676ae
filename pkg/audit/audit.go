// Package audit records the administrative activity trail: who created,
// changed or removed which entity, plus login events. Entries are
// append-only; a failed write is logged and dropped, never surfaced to the
// operation that triggered it.
package audit

import (
	"context"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

// Target types recorded in the trail.
const (
	TargetSite     = "site"
	TargetCategory = "category"
	TargetUser     = "user"
	TargetSetting  = "setting"
	TargetSession  = "session"
)

// Logger appends activity entries through the store.
type Logger struct {
	store  store.Store
	logger *observability.Logger
}

// NewLogger creates an activity logger over the given store.
func NewLogger(st store.Store, logger *observability.Logger) *Logger {
	return &Logger{store: st, logger: logger}
}

// Record appends one entry. Failures never propagate; the admin operation
// that produced the entry has already succeeded and must stay successful.
func (l *Logger) Record(ctx context.Context, userID int64, action nav.ActionType, targetType string, targetID *int64, title, description string) {
	e := &nav.ActivityLogEntry{
		UserID:      userID,
		ActionType:  action,
		TargetType:  targetType,
		TargetID:    targetID,
		Title:       title,
		Description: description,
	}
	if err := l.store.AppendActivity(ctx, e); err != nil {
		if l.logger != nil {
			l.logger.WithError(err).WithFields(map[string]interface{}{
				"action": string(action),
				"target": targetType,
			}).Warn("activity entry dropped")
		}
	}
}

// RecordCreate appends a create entry for the target.
func (l *Logger) RecordCreate(ctx context.Context, userID int64, targetType string, targetID int64, title string) {
	l.Record(ctx, userID, nav.ActionCreate, targetType, &targetID, title, "")
}

// RecordUpdate appends an update entry for the target.
func (l *Logger) RecordUpdate(ctx context.Context, userID int64, targetType string, targetID int64, title string) {
	l.Record(ctx, userID, nav.ActionUpdate, targetType, &targetID, title, "")
}

// RecordDelete appends a delete entry for the target.
func (l *Logger) RecordDelete(ctx context.Context, userID int64, targetType string, targetID int64, title string) {
	l.Record(ctx, userID, nav.ActionDelete, targetType, &targetID, title, "")
}

// List returns activity entries, newest first.
func (l *Logger) List(ctx context.Context, f store.ActivityFilter, p store.Page) ([]nav.ActivityLogEntry, int64, error) {
	return l.store.ListActivity(ctx, f, p)
}
