package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("PVZ_TEST_SET", "value")
	t.Setenv("PVZ_TEST_EMPTY", "")

	assert.Equal(t, "value", GetEnvOrDefault("PVZ_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("PVZ_TEST_EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("PVZ_TEST_UNSET", "fallback"))
}

func TestParseInteger(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42, ParseInteger("42", 0))
	assert.Equal(t, 42, ParseInteger(" 42 ", 0))
	assert.Equal(t, -5, ParseInteger("-5", 0))
	assert.Equal(t, 7, ParseInteger("", 7))
	assert.Equal(t, 7, ParseInteger("abc", 7))
	assert.Equal(t, 7, ParseInteger("4.2", 7))
}

func TestParseBoolean(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseBoolean("true", false))
	assert.True(t, ParseBoolean("1", false))
	assert.False(t, ParseBoolean("false", true))
	assert.False(t, ParseBoolean("0", true))
	assert.True(t, ParseBoolean("", true))
	assert.True(t, ParseBoolean("yes", true))
}
