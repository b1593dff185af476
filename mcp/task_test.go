package mcp

import "testing"

func TestTaskStatusTerminal(t *testing.T) {
	for _, s := range []TaskStatus{TaskCompleted, TaskFailed, TaskCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []TaskStatus{TaskWorking, TaskInputRequired} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTaskStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskWorking, TaskInputRequired, true},
		{TaskWorking, TaskCompleted, true},
		{TaskWorking, TaskFailed, true},
		{TaskWorking, TaskCancelled, true},
		{TaskWorking, TaskWorking, false},
		{TaskInputRequired, TaskWorking, true},
		{TaskInputRequired, TaskCompleted, true},
		{TaskInputRequired, TaskInputRequired, false},
		{TaskCompleted, TaskWorking, false},
		{TaskCompleted, TaskFailed, false},
		{TaskFailed, TaskCancelled, false},
		{TaskCancelled, TaskWorking, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
