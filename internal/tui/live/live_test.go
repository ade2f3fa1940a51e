package live

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/internal/bench"
)

func newTestModel(policy bench.Policy, cancel func()) Model {
	return NewModel("http://localhost/", policy, make(chan bench.Snapshot), cancel)
}

func TestSnapshotUpdatesStats(t *testing.T) {
	m := newTestModel(bench.Policy{}.WithTimeLimit(10*time.Second), nil)

	next, cmd := m.Update(bench.Snapshot{Requests: 7, Success: 6, Fail: 1, Elapsed: 5 * time.Second})
	got := next.(Model)

	assert.Equal(t, uint64(7), got.Stats.Requests)
	assert.NotNil(t, cmd)
	assert.InDelta(t, 0.5, got.Percent(), 1e-9)
	assert.Contains(t, got.View(), "FAIL: 1")
}

func TestPercentUsesNearerBound(t *testing.T) {
	policy := bench.Policy{}.WithTimeLimit(100 * time.Second).WithRequestLimit(10)
	m := newTestModel(policy, nil)
	m.Stats = bench.Snapshot{Requests: 8, Elapsed: 10 * time.Second}
	assert.InDelta(t, 0.8, m.Percent(), 1e-9)

	m.Stats.Done = true
	assert.Equal(t, 1.0, m.Percent())
}

func TestQuitCancelsThenWaitsForDone(t *testing.T) {
	cancelled := 0
	m := newTestModel(bench.Policy{}, func() { cancelled++ })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	got := next.(Model)
	assert.True(t, got.Stopping)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, cancelled)

	next, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, 1, cancelled)

	next, _ = next.(Model).Update(DoneMsg{Summary: "=== Benchmark Results ==="})
	got = next.(Model)
	require.True(t, got.Done)
	assert.Contains(t, got.View(), "=== Benchmark Results ===")

	_, cmd = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSampleFeedsSparklines(t *testing.T) {
	m := newTestModel(bench.Policy{}, nil)
	m.Stats = bench.Snapshot{Requests: 50, Elapsed: 500 * time.Millisecond, P90: 3 * time.Millisecond}

	next, _ := m.Update(tickMsg(time.Now()))
	got := next.(Model)

	require.Len(t, got.RpsLine.Data, 1)
	assert.InDelta(t, 100.0, got.RpsLine.Data[0], 1e-9)
	assert.InDelta(t, 3.0, got.LatencyLine.Data[0], 1e-9)
}
