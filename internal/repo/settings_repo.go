// Package repo – settings, keyword rules, and diagnostic records.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// GetSetting returns the value for key, or "" when unset.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var s domain.Setting
	err := db.WithContext(ctx).First(&s, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return s.Value, nil
}

// SetSetting upserts a settings entry.
func SetSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	s := domain.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&s).Error
}

// AllSettings returns the whole settings map.
func AllSettings(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	var rows []domain.Setting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// ListActiveKeywordRules returns active rules in ascending priority; within
// the same priority, older rules first.
func ListActiveKeywordRules(ctx context.Context, db *gorm.DB) ([]domain.KeywordRule, error) {
	var out []domain.KeywordRule
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority asc, created_at asc").
		Find(&out).Error
	return out, err
}

// CreateKeywordRule inserts a keyword rule with a generated UUID.
func CreateKeywordRule(ctx context.Context, db *gorm.DB, r *domain.KeywordRule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if !r.MatchType.Valid() {
		r.MatchType = domain.MatchContains
	}
	r.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(r).Error
}

// ListKeywordRules returns every rule, active or not, in ascending
// priority. Used by the management surface; the dispatcher reads only
// active rules via ListActiveKeywordRules.
func ListKeywordRules(ctx context.Context, db *gorm.DB) ([]domain.KeywordRule, error) {
	var out []domain.KeywordRule
	err := db.WithContext(ctx).
		Order("priority asc, created_at asc").
		Find(&out).Error
	return out, err
}

// DeleteKeywordRule removes the rule by id. Returns gorm.ErrRecordNotFound
// when no row matched.
func DeleteKeywordRule(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.KeywordRule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendBugReport persists a diagnostic record. Reports are append-only;
// only their triage status is ever updated, elsewhere.
func AppendBugReport(ctx context.Context, db *gorm.DB, r *domain.BugReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = domain.BugStatusNew
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListBugReports returns the newest reports first, optionally filtered by
// triage status, capped at limit (values <= 0 read as 100).
func ListBugReports(ctx context.Context, db *gorm.DB, status string, limit int) ([]domain.BugReport, error) {
	if limit <= 0 {
		limit = 100
	}
	q := db.WithContext(ctx).Order("timestamp desc").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.BugReport
	err := q.Find(&out).Error
	return out, err
}

// UpdateBugReportStatus moves a report through triage. Returns
// gorm.ErrRecordNotFound when the report does not exist.
func UpdateBugReportStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.BugReport{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendRequestLog persists one access-log row.
func AppendRequestLog(ctx context.Context, db *gorm.DB, r *domain.RequestLog) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}
