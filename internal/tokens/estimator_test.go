package tokens

import "testing"

func TestCapMaxTokens(t *testing.T) {
	tests := []struct {
		name           string
		requestedMax   int
		contextWindow  int
		estimatedInput int
		buffer         int
		want           int
	}{
		{"no window passes through", 4096, 0, 50_000, 1024, 4096},
		{"request fits", 4096, 128_000, 10_000, 1024, 4096},
		{"request shrunk to available", 100_000, 32_000, 10_000, 1024, 32_000 - 12_000 - 1024},
		{"no request uses available", 0, 32_000, 10_000, 1024, 32_000 - 12_000 - 1024},
		{"oversized input floors at 100", 4096, 8_000, 50_000, 1024, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapMaxTokens(tt.requestedMax, tt.contextWindow, tt.estimatedInput, tt.buffer)
			if got != tt.want {
				t.Errorf("CapMaxTokens(%d, %d, %d, %d) = %d, want %d",
					tt.requestedMax, tt.contextWindow, tt.estimatedInput, tt.buffer, got, tt.want)
			}
		})
	}
}

func TestCountFallback(t *testing.T) {
	var e *Estimator
	if got := e.Count("twelve chars"); got != 3 {
		t.Errorf("fallback count = %d, want 3", got)
	}
}
