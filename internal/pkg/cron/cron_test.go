package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterRejectsDuplicatesAndZeroInterval(t *testing.T) {
	s := New()

	if err := s.Register(Job{Name: "nightly", Interval: 0}); err == nil {
		t.Fatal("expected error for zero interval")
	}

	job := Job{Name: "nightly", Interval: time.Hour, Run: func(context.Context) error { return nil }}
	if err := s.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(job); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestTriggerRunsJobAndRecordsOutcome(t *testing.T) {
	s := New()

	var runs int64
	err := s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Run: func(context.Context) error {
			if atomic.AddInt64(&runs, 1) == 1 {
				return errors.New("boom")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.Trigger(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown job")
	}

	waitForStatus := func(want string) JobInfo {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			for _, info := range s.Snapshot() {
				if info.Name == "flaky" && info.Status == want {
					return info
				}
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("job never reached status %q", want)
		return JobInfo{}
	}

	if err := s.Trigger(context.Background(), "flaky"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	info := waitForStatus("failed")
	if info.Error != "boom" {
		t.Errorf("error = %q, want boom", info.Error)
	}
	if info.LastRunAt == nil {
		t.Error("last run time not recorded")
	}

	if err := s.Trigger(context.Background(), "flaky"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	info = waitForStatus("ok")
	if info.Error != "" {
		t.Errorf("error = %q, want empty after success", info.Error)
	}
}
