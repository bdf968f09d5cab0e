package tui

import (
	"strings"
	"testing"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{2048, "2.0kB"},
		{3 * 1024 * 1024, "3.0MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestProgressModelCounters(t *testing.T) {
	m := newProgressModel()

	next, _ := m.Update(attemptMsg(engine.AttemptInfo{
		AttemptNumber: 1, TotalAttempts: 2, Model: "deepseek-v3", Provider: "novita",
	}))
	m = next.(progressModel)

	next, _ = m.Update(tokenMsg{bytes: 100})
	m = next.(progressModel)
	next, _ = m.Update(tokenMsg{bytes: 50})
	m = next.(progressModel)

	if m.bytes != 150 || m.chunks != 2 {
		t.Errorf("bytes = %d, chunks = %d", m.bytes, m.chunks)
	}

	// a retry attempt resets the counters
	next, _ = m.Update(attemptMsg(engine.AttemptInfo{
		AttemptNumber: 2, TotalAttempts: 2, Model: "deepseek-v3", Provider: "auto", ResetCode: true,
	}))
	m = next.(progressModel)
	if m.bytes != 0 || m.chunks != 0 {
		t.Errorf("after retry: bytes = %d, chunks = %d", m.bytes, m.chunks)
	}

	view := m.View()
	if !strings.Contains(view, "deepseek-v3") || !strings.Contains(view, "via auto") {
		t.Errorf("view = %q", view)
	}
}

func TestProgressModelDone(t *testing.T) {
	m := newProgressModel()

	next, _ := m.Update(doneMsg{result: &engine.Result{
		HTML:         strings.Repeat("x", 2048),
		UsedModel:    "glm-4.6",
		UsedProvider: "auto",
	}})
	m = next.(progressModel)

	if !m.done {
		t.Fatal("model not done")
	}
	view := m.View()
	if !strings.Contains(view, "generated") || !strings.Contains(view, "glm-4.6") {
		t.Errorf("summary = %q", view)
	}
}
