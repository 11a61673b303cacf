package domain

import "testing"

func TestRun_Lifecycle(t *testing.T) {
	r := NewRun("demo", "hello")

	if r.Status != RunStatusPending {
		t.Fatalf("expected PENDING, got %s", r.Status)
	}
	if r.IsFinished() {
		t.Error("new run should not be finished")
	}
	if r.Duration() != 0 {
		t.Error("duration of unstarted run should be 0")
	}

	r.MarkRunning()
	if r.Status != RunStatusRunning || r.StartedAt == nil {
		t.Fatalf("expected RUNNING with start time, got %s", r.Status)
	}

	r.MarkSucceeded("HELLO")
	if !r.IsFinished() {
		t.Error("succeeded run should be finished")
	}
	if r.Output != "HELLO" {
		t.Errorf("expected output HELLO, got %v", r.Output)
	}
	if r.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestRun_MarkFailed(t *testing.T) {
	r := NewRun("demo", nil)
	r.MarkRunning()
	r.MarkFailed("boom")

	if r.Status != RunStatusFailed {
		t.Errorf("expected FAILED, got %s", r.Status)
	}
	if r.Error != "boom" {
		t.Errorf("expected error boom, got %s", r.Error)
	}
	if r.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
}

func TestParseRunStatus(t *testing.T) {
	tests := []struct {
		in   string
		want RunStatus
		ok   bool
	}{
		{"PENDING", RunStatusPending, true},
		{"SUCCEEDED", RunStatusSucceeded, true},
		{"CANCELLED", RunStatusCancelled, true},
		{"pending", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRunStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRunStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
