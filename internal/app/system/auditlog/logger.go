// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for mutation events (group/membership changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for emitting audit events.
// It logs to MongoDB (via audit.Store) and structured logs (via zap)
// depending on the configured mode per category.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// Diff compares two field maps and returns only the entries that
// changed. Unchanged fields are dropped so the emitted event carries
// a minimal before/after pair.
func Diff(before, after map[string]string) (changedBefore, changedAfter map[string]string) {
	changedBefore = make(map[string]string)
	changedAfter = make(map[string]string)
	for k, bv := range before {
		if av, ok := after[k]; !ok || av != bv {
			changedBefore[k] = bv
			if ok {
				changedAfter[k] = av
			}
		}
	}
	for k, av := range after {
		if _, ok := before[k]; !ok {
			changedAfter[k] = av
		}
	}
	if len(changedBefore) == 0 {
		changedBefore = nil
	}
	if len(changedAfter) == 0 {
		changedAfter = nil
	}
	return changedBefore, changedAfter
}

func (l *Logger) mode(category string) string {
	if category == audit.CategoryAuth {
		return l.config.Auth
	}
	return l.config.Admin
}

func (l *Logger) emit(ctx context.Context, event audit.Event) {
	switch l.mode(event.Category) {
	case "off":
		return
	case "db":
		l.logToDB(ctx, event)
	case "log":
		l.logToZap(event)
	default: // "all"
		l.logToDB(ctx, event)
		l.logToZap(event)
	}
}

func (l *Logger) logToDB(ctx context.Context, event audit.Event) {
	if l.store == nil {
		return
	}
	if err := l.store.Log(ctx, event); err != nil {
		// Audit persistence failures must not fail the mutation that
		// already committed; surface them in the app log instead.
		l.zapLog.Error("audit event write failed",
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.MembershipID != nil {
		fields = append(fields, zap.String("membership_id", event.MembershipID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	if len(event.After) > 0 {
		fields = append(fields, zap.Any("after", event.After))
	}
	l.zapLog.Info("audit", fields...)
}

// GroupEvent emits a group mutation event with an optional
// changed-fields diff. Before/after maps may be nil for operations
// without field changes (archive, delete).
func (l *Logger) GroupEvent(ctx context.Context, eventType string, actorID, groupID primitive.ObjectID, before, after map[string]string) {
	cb, ca := Diff(before, after)
	l.emit(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Before:    cb,
		After:     ca,
	})
}

// MembershipEvent emits a membership mutation event.
func (l *Logger) MembershipEvent(ctx context.Context, eventType string, actorID, groupID, userID primitive.ObjectID, details map[string]string) {
	l.emit(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		UserID:    &userID,
		Success:   true,
		Details:   details,
	})
}

// LoginSuccess records a successful internal login.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID) {
	l.emit(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
	})
}

// LoginFailed records a rejected internal login attempt.
func (l *Logger) LoginFailed(ctx context.Context, email, reason string) {
	l.emit(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// Logout records a sign-out.
func (l *Logger) Logout(ctx context.Context, userID primitive.ObjectID) {
	l.emit(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		Success:   true,
	})
}
