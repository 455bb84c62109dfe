package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunAgainstMiniredis(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), params{users: 20, concurrency: 4, ops: 200, prefix: "t:"}, &out)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	for _, phase := range []string{"login:", "validate:", "authorize:"} {
		if !strings.Contains(out.String(), phase) {
			t.Fatalf("missing %s in output:\n%s", phase, out.String())
		}
	}
	if !strings.Contains(out.String(), "validate: ops=200 failures=0") {
		t.Fatalf("expected clean validate phase:\n%s", out.String())
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(time.Second, nil, 3)
	if s.ops != 0 || s.failures != 3 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
