// Package taskqueue records background dispatch tasks (newsletter fan-outs)
// in Redis so their outcomes can be inspected after the request that
// triggered them has already returned.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redisc "github.com/foliohq/core/internal/pkg/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is one recorded dispatch run.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix = "folio:task:"
	keyIndex  = "folio:tasks:index" // sorted set, score = created_at millis
	taskTTL   = 7 * 24 * time.Hour
)

// ErrNotFound is returned when a task id is unknown or already expired.
var ErrNotFound = errors.New("task not found")

// Service is the Redis-backed task ledger.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func taskKey(id string) string { return keyPrefix + id }

func (s *Service) store(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, taskKey(task.ID), data, taskTTL).Err()
}

// Enqueue records a new pending task and indexes it by creation time.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   raw,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), data, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: task.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// GetByID retrieves a single task.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus sets a task's status and optional result/error message.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	task.Status = status
	task.UpdatedAt = time.Now()
	task.Error = errMsg
	if result != nil {
		if task.Result, err = json.Marshal(result); err != nil {
			return err
		}
	}
	return s.store(ctx, task)
}

// List returns one page of tasks, newest first, plus the total count.
// Index entries whose task body already expired are skipped.
func (s *Service) List(ctx context.Context, page, size int) ([]*Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	rdb := s.rc.Raw()
	total, err := rdb.ZCard(ctx, keyIndex).Result()
	if err != nil {
		return nil, 0, err
	}

	start := int64(page-1) * int64(size)
	ids, err := rdb.ZRevRange(ctx, keyIndex, start, start+int64(size)-1).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []*Task{}, total, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	raws, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, err
	}

	tasks := make([]*Task, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(str), &task); err != nil {
			continue
		}
		tasks = append(tasks, &task)
	}
	return tasks, total, nil
}
