package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	first, second := CanonicalPair("calories_consumed", "avg_heartbeat")
	assert.Equal(t, "avg_heartbeat", first)
	assert.Equal(t, "calories_consumed", second)

	// Already ordered input is unchanged
	first, second = CanonicalPair("avg_heartbeat", "calories_consumed")
	assert.Equal(t, "avg_heartbeat", first)
	assert.Equal(t, "calories_consumed", second)
}

func TestCanonicalPair_Symmetric(t *testing.T) {
	a1, b1 := CanonicalPair("sleep_hours", "morning_pulse")
	a2, b2 := CanonicalPair("morning_pulse", "sleep_hours")
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}
