package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPolicyLeadTime(t *testing.T) {
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	policy := SchedulingPolicy{AdvanceBookingHours: 2, AdvanceBookingDays: 30}

	out := applyPolicy([]Interval{
		ivAt(t, 9, 0, 12, 0),  // starts before notice boundary (10:00), head trimmed
		ivAt(t, 14, 0, 17, 0), // untouched
	}, policy, now)

	require.Len(t, out, 2)
	assert.Equal(t, ivAt(t, 10, 0, 12, 0), out[0])
	assert.Equal(t, ivAt(t, 14, 0, 17, 0), out[1])
}

func TestApplyPolicyDropsFullyPast(t *testing.T) {
	now := time.Date(2026, 9, 7, 13, 0, 0, 0, time.UTC)
	policy := SchedulingPolicy{AdvanceBookingHours: 24, AdvanceBookingDays: 30}

	out := applyPolicy([]Interval{ivAt(t, 9, 0, 12, 0)}, policy, now)
	assert.Empty(t, out)
}

func TestApplyPolicyHorizon(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	policy := SchedulingPolicy{AdvanceBookingDays: 5}

	nearEnd := Interval{
		Start: now.Add(4 * 24 * time.Hour),
		End:   now.Add(4*24*time.Hour + 3*time.Hour),
	}
	pastHorizon := Interval{
		Start: now.Add(6 * 24 * time.Hour),
		End:   now.Add(6*24*time.Hour + 3*time.Hour),
	}

	out := applyPolicy([]Interval{nearEnd, pastHorizon}, policy, now)

	require.Len(t, out, 1)
	assert.Equal(t, nearEnd, out[0])
}
