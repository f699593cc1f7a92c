package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_AdvancesOneSecond(t *testing.T) {
	c := NewStepClock()

	first := c.Now()
	second := c.Now()

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Second, second.Sub(first))
}

func TestStepClock_Reset(t *testing.T) {
	c := NewStepClock()
	first := c.Now()
	c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, first, c.Now())
}
