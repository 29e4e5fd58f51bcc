package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreetingStatusValid(t *testing.T) {
	for _, s := range []GreetingStatus{
		GreetingStatusGenerated, GreetingStatusNeedsApproval, GreetingStatusApproved,
		GreetingStatusRejected, GreetingStatusSent, GreetingStatusSkipped, GreetingStatusError,
	} {
		assert.True(t, s.Valid(), "status %s should be valid", s)
	}

	assert.False(t, GreetingStatus("pending").Valid())
	assert.False(t, GreetingStatus("").Valid())
}

func TestGreetingStatusIsTerminal(t *testing.T) {
	assert.True(t, GreetingStatusSent.IsTerminal())
	assert.True(t, GreetingStatusRejected.IsTerminal())
	assert.True(t, GreetingStatusSkipped.IsTerminal())

	assert.False(t, GreetingStatusGenerated.IsTerminal())
	assert.False(t, GreetingStatusNeedsApproval.IsTerminal())
	assert.False(t, GreetingStatusApproved.IsTerminal())
	assert.False(t, GreetingStatusError.IsTerminal())
}

func TestGreetingStatusTransitions(t *testing.T) {
	cases := []struct {
		from    GreetingStatus
		to      GreetingStatus
		allowed bool
	}{
		{GreetingStatusGenerated, GreetingStatusApproved, true},
		{GreetingStatusGenerated, GreetingStatusRejected, true},
		{GreetingStatusGenerated, GreetingStatusSent, true},
		{GreetingStatusGenerated, GreetingStatusSkipped, true},
		{GreetingStatusGenerated, GreetingStatusError, true},
		{GreetingStatusGenerated, GreetingStatusNeedsApproval, false},

		{GreetingStatusNeedsApproval, GreetingStatusApproved, true},
		{GreetingStatusNeedsApproval, GreetingStatusRejected, true},
		{GreetingStatusNeedsApproval, GreetingStatusSent, false},
		{GreetingStatusNeedsApproval, GreetingStatusSkipped, false},

		{GreetingStatusApproved, GreetingStatusSent, true},
		{GreetingStatusApproved, GreetingStatusSkipped, true},
		{GreetingStatusApproved, GreetingStatusError, true},
		{GreetingStatusApproved, GreetingStatusRejected, false},

		{GreetingStatusError, GreetingStatusSent, true},
		{GreetingStatusError, GreetingStatusSkipped, true},
		{GreetingStatusError, GreetingStatusError, true},
		{GreetingStatusError, GreetingStatusApproved, false},

		{GreetingStatusSent, GreetingStatusError, false},
		{GreetingStatusRejected, GreetingStatusApproved, false},
		{GreetingStatusSkipped, GreetingStatusSent, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestGreetingIsReviewable(t *testing.T) {
	assert.True(t, (&Greeting{Status: GreetingStatusNeedsApproval}).IsReviewable())
	assert.True(t, (&Greeting{Status: GreetingStatusGenerated}).IsReviewable())

	assert.False(t, (&Greeting{Status: GreetingStatusApproved}).IsReviewable())
	assert.False(t, (&Greeting{Status: GreetingStatusSent}).IsReviewable())
	assert.False(t, (&Greeting{Status: GreetingStatusRejected}).IsReviewable())
}

func TestClientSegmentRequiresApproval(t *testing.T) {
	assert.True(t, ClientSegmentVIP.RequiresApproval())

	assert.False(t, ClientSegmentStandard.RequiresApproval())
	assert.False(t, ClientSegmentNew.RequiresApproval())
	assert.False(t, ClientSegmentLoyal.RequiresApproval())
}
