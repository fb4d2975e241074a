// Package audit persists the tamper-evident action trail. Writes are
// fire-and-forget so a slow audit database can never block a posting.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// sensitiveKeys are masked before any detail payload is persisted
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"credit_card", "card_number", "ssn", "tax_id",
	"bank_account", "iban",
}

const masked = "***MASKED***"

// Log is one persisted audit record
type Log struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	TenantID  string    `gorm:"index;size:64"`
	UserID    string    `gorm:"size:64"`
	RequestID string    `gorm:"size:64"`
	Module    string    `gorm:"index;size:16"`
	Action    string    `gorm:"index;size:64"`
	Details   string    `gorm:"type:text"`
}

// TableName sets the audit table name
func (Log) TableName() string { return "audit_logs" }

// Store writes audit records to the configured database
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the audit database (sqlite or postgres) and migrates the
// audit table.
func Open(cfg *config.AuditConfig, zapLogger *zap.Logger) (*Store, error) {
	gl := logger.NewGormLogger(zapLogger, gormlogger.Warn)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = sqlite.Open(cfg.Path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := db.AutoMigrate(&Log{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}

	return &Store{db: db, log: zapLogger.Named("audit")}, nil
}

// LogAction records an action asynchronously. Identity fields are taken from
// the context; sensitive detail values are masked before persisting. Errors
// are logged, never returned.
func (s *Store) LogAction(ctx context.Context, module, action string, details map[string]any) {
	record := Log{
		Timestamp: time.Now().UTC(),
		TenantID:  logger.GetTenantID(ctx),
		UserID:    logger.GetUserID(ctx),
		RequestID: logger.GetRequestID(ctx),
		Module:    module,
		Action:    action,
		Details:   encodeDetails(details),
	}

	go func() {
		if err := s.db.Create(&record).Error; err != nil {
			s.log.Error("failed to write audit record",
				zap.String("module", module),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}()
}

// Query returns audit records for a tenant, newest first
func (s *Store) Query(ctx context.Context, tenantID, module string, limit int) ([]Log, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit)
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if module != "" {
		q = q.Where("module = ?", module)
	}

	var logs []Log
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return logs, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func encodeDetails(details map[string]any) string {
	if details == nil {
		return "{}"
	}
	encoded, err := json.Marshal(maskValues(details))
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// maskValues returns a copy of details with sensitive values replaced,
// descending into nested maps.
func maskValues(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		if isSensitive(k) {
			out[k] = masked
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = maskValues(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
