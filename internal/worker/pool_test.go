package worker

import (
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasksBeforeStop(t *testing.T) {
	p := NewPool(3)
	var n atomic.Int32
	for range 50 {
		if !p.Submit(func() { n.Add(1) }) {
			t.Fatal("submit rejected on running pool")
		}
	}
	p.Stop()
	if got := n.Load(); got != 50 {
		t.Fatalf("ran %d tasks, want 50", got)
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := NewPool(1)
	p.Stop()
	if p.Submit(func() {}) {
		t.Fatal("submit accepted after stop")
	}
	p.Stop()
}
