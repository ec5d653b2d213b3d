package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name  string
		step  int
		total int
		phase Phase
		want  float64
	}{
		{"最初の開始点", 0, 16, Starting, 0.5 / 16 * 100},
		{"最初の完了点", 0, 16, Complete, 1.0 / 16 * 100},
		{"最後の開始点", 15, 16, Starting, 15.5 / 16 * 100},
		{"最後の完了点", 15, 16, Complete, 100},
		{"範囲外は100に収まる", 20, 16, Complete, 100},
		{"負の位置は0に収まる", -5, 16, Starting, 0},
		{"総数0は0", 3, 0, Complete, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Report(tt.step, tt.total, tt.phase, "label")
			assert.InDelta(t, tt.want, got.Percent, 1e-9)
			assert.Equal(t, "label", got.Status)
		})
	}
}

func TestReport_MonotonicAcrossBatch(t *testing.T) {
	prev := -1.0
	for i := 0; i < 16; i++ {
		for _, ph := range []Phase{Starting, Complete} {
			u := Report(i, 16, ph, "")
			require.GreaterOrEqual(t, u.Percent, prev)
			prev = u.Percent
		}
	}
	assert.Equal(t, 100.0, prev)
}

func TestTracker(t *testing.T) {
	var seen []Update
	tr := NewTracker(func(u Update) { seen = append(seen, u) })

	tr.Push(Update{Percent: 50, Status: "half"})
	tr.Push(Update{Percent: 10, Status: "regressed"})
	tr.Status("pausing")

	require.Len(t, seen, 3)
	assert.Equal(t, 50.0, seen[1].Percent)
	assert.Equal(t, "regressed", seen[1].Status)
	assert.Equal(t, Update{Percent: 50, Status: "pausing"}, seen[2])
	assert.Equal(t, seen[2], tr.Current())

	tr.Reset()
	assert.Equal(t, Update{}, tr.Current())
}
