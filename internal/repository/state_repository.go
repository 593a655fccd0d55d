package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-tracker/internal/model"
)

// Dedup key prefixes. The key format is part of the persistence contract:
// lastOverdueNotification_<taskId> etc., value = epoch-millisecond string.
const (
	overdueKeyPrefix = "lastOverdueNotification_"
	dueSoonKeyPrefix = "lastDueSoonNotification_"
	systemKeyPrefix  = "lastSystemNotification_"
)

func OverdueKey(taskID string) string  { return overdueKeyPrefix + taskID }
func DueSoonKey(taskID string) string  { return dueSoonKeyPrefix + taskID }
func SystemKey(noticeID string) string { return systemKeyPrefix + noticeID }

// StateRepository is the key/value tier shared by notification dedup records
// and the settings snapshot.
type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry model.StateEntry
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	entry := model.StateEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

func (r *StateRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).
		Delete(&model.StateEntry{}).Error; err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// LastSent reads a dedup timestamp. Absence means "never sent".
func (r *StateRepository) LastSent(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse dedup record %q: %w", key, err)
	}
	return time.UnixMilli(millis), true, nil
}

// MarkSent records a dedup timestamp for the key.
func (r *StateRepository) MarkSent(ctx context.Context, key string, at time.Time) error {
	return r.Set(ctx, key, strconv.FormatInt(at.UnixMilli(), 10))
}

// DeleteDedupOlderThan ages out dedup records last written before the cutoff.
// The settings snapshot is untouched.
func (r *StateRepository) DeleteDedupOlderThan(ctx context.Context, cutoff time.Time) error {
	err := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where("key LIKE ? OR key LIKE ? OR key LIKE ?",
			overdueKeyPrefix+"%", dueSoonKeyPrefix+"%", systemKeyPrefix+"%").
		Delete(&model.StateEntry{}).Error
	if err != nil {
		return fmt.Errorf("age out dedup records: %w", err)
	}
	return nil
}

// DeleteTaskRecords clears the dedup records of a single task, used when the
// task is deleted so a recreated one starts fresh.
func (r *StateRepository) DeleteTaskRecords(ctx context.Context, taskID string) error {
	err := r.db.WithContext(ctx).
		Where("key IN ?", []string{OverdueKey(taskID), DueSoonKey(taskID)}).
		Delete(&model.StateEntry{}).Error
	if err != nil {
		return fmt.Errorf("delete dedup records for task %s: %w", taskID, err)
	}
	return nil
}
