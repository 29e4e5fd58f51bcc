package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCNowIsUTC(t *testing.T) {
	now := UTCNow()
	assert.Equal(t, time.UTC, now.Location())
}

func TestUTCNowPtr(t *testing.T) {
	before := UTCNow()
	got := UTCNowPtr()
	after := UTCNow()

	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestUTCNowUnix(t *testing.T) {
	before := UTCNow().Unix()
	got := UTCNowUnix()
	after := UTCNow().Unix()

	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, after)
}

func TestUTCNowFormat(t *testing.T) {
	got := UTCNowFormat("2006-01-02")
	parsed, err := time.Parse("2006-01-02", got)
	require.NoError(t, err)
	assert.True(t, SameDate(parsed, UTCNow()))
}

func TestUTCNowRFC3339(t *testing.T) {
	got := UTCNowRFC3339()
	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired(UTCNow().Add(-time.Minute)))
	assert.False(t, IsExpired(UTCNow().Add(time.Minute)))
}
