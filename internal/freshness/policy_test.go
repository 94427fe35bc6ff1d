package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func TestEvaluateMissingEntryDownloads(t *testing.T) {
	d := Policy{}.Evaluate(LocalState{}, now)
	assert.Equal(t, ActionDownload, d.Action)
	assert.True(t, d.NeedsRemote())
}

func TestEvaluateThresholdBoundaries(t *testing.T) {
	cases := []struct {
		name string
		age  time.Duration
		want Action
	}{
		{"just written", 0, ActionReuse},
		{"half an hour", 30 * time.Minute, ActionReuse},
		{"exactly at threshold", time.Hour, ActionReuse},
		{"one nanosecond past", time.Hour + time.Nanosecond, ActionCheckRemote},
		{"62 minutes", 62 * time.Minute, ActionCheckRemote},
		{"clock skew", -10 * time.Minute, ActionReuse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := New(time.Hour).Evaluate(LocalState{Present: true, ModTime: now.Add(-tc.age)}, now)
			assert.Equal(t, tc.want, d.Action)
			assert.Equal(t, tc.age, d.Age)
		})
	}
}

func TestEvaluateUsesCustomThreshold(t *testing.T) {
	local := LocalState{Present: true, ModTime: now.Add(-10 * time.Minute)}
	assert.Equal(t, ActionCheckRemote, New(5*time.Minute).Evaluate(local, now).Action)
	assert.Equal(t, ActionReuse, New(0).Evaluate(local, now).Action)
}

func TestEvaluateRemote(t *testing.T) {
	modTime := now.Add(-62 * time.Minute)
	local := LocalState{Present: true, ModTime: modTime}

	older := Policy{}.EvaluateRemote(local, modTime.Add(-24*time.Hour), now)
	assert.Equal(t, ActionRefresh, older.Action)
	assert.False(t, older.NeedsRemote())

	same := Policy{}.EvaluateRemote(local, modTime, now)
	assert.Equal(t, ActionRefresh, same.Action)

	newer := Policy{}.EvaluateRemote(local, modTime.Add(time.Minute), now)
	assert.Equal(t, ActionDownload, newer.Action)
	assert.Equal(t, modTime.Add(time.Minute), newer.CommitDate)
}
