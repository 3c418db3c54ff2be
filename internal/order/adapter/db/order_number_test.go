package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumberFormat(t *testing.T) {
	day := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)

	assert.Equal(t, "20260830-001", orderNumber(day, 1))
	assert.Equal(t, "20260830-042", orderNumber(day, 42))
	assert.Equal(t, "20260830-137", orderNumber(day, 137))
	assert.Equal(t, "20260830-1000", orderNumber(day, 1000))
}

func TestOrderNumberUsesUTCDate(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	day := time.Date(2026, 8, 30, 23, 30, 0, 0, loc)

	assert.Equal(t, "20260831-001", orderNumber(day, 1))
}
