package service

import (
	"sync"
	"time"

	"task-tracker/internal/model"
	"task-tracker/internal/notify"
)

// DefaultDueSoonThreshold is the lookahead window for due-soon
// classification.
const DefaultDueSoonThreshold = time.Hour

// ScanResult pairs a task with its classification. Tasks classified as
// normal are not reported.
type ScanResult struct {
	Task model.Task
	Type notify.EventType // EventOverdue or EventDueSoon
}

// DueDateScanner classifies open, dated tasks against an instant. Tasks
// without a due date are never monitored.
type DueDateScanner struct {
	mu        sync.RWMutex
	threshold time.Duration
}

func NewDueDateScanner() *DueDateScanner {
	return &DueDateScanner{threshold: DefaultDueSoonThreshold}
}

// SetThreshold takes effect on the next scan.
func (s *DueDateScanner) SetThreshold(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.threshold = d
	s.mu.Unlock()
}

func (s *DueDateScanner) Threshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Scan classifies each candidate task. The stored due date is a calendar
// day, so it is compared as midnight in now's location.
func (s *DueDateScanner) Scan(tasks []model.Task, now time.Time) []ScanResult {
	threshold := s.Threshold()

	var results []ScanResult
	for _, task := range tasks {
		if task.Completed || task.DueDate == nil {
			continue
		}

		untilDue := task.DueDate.Time(now.Location()).Sub(now)
		switch {
		case untilDue < 0:
			results = append(results, ScanResult{Task: task, Type: notify.EventOverdue})
		case untilDue <= threshold:
			results = append(results, ScanResult{Task: task, Type: notify.EventDueSoon})
		}
	}
	return results
}
