package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// TaskRepository handles persistence of the task collection. The monitor
// treats the collection as a single shared resource: it reads it wholesale
// and writes it back wholesale in one transaction.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// GetAll returns every task. On read failure it logs and returns an empty
// slice so a bad cycle degrades to a no-op instead of aborting the timer.
func (r *TaskRepository) GetAll(ctx context.Context) []model.Task {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("created_at").Find(&tasks).Error; err != nil {
		slog.Error("load tasks", "error", err)
		return []model.Task{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks
}

// ReplaceAll swaps the stored collection for the given one in a single
// transaction, so a failure leaves the previous collection intact.
func (r *TaskRepository) ReplaceAll(ctx context.Context, tasks []model.Task) bool {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Create(&tasks).Error
	})
	if err != nil {
		slog.Error("save tasks", "error", err)
		return false
	}
	return true
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task %s: %w", taskID, err)
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}
