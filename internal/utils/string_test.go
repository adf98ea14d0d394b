package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "tatort münster", NormalizeQuery("  tatort   münster \n"))
	assert.Equal(t, "", NormalizeQuery("   "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Tagesschau", Truncate("Tagesschau", 10))
	assert.Equal(t, "Tages…", Truncate("Tagesschau", 6))
	assert.Equal(t, "", Truncate("Tagesschau", 0))

	// wide runes take two cells
	assert.Equal(t, 4, DisplayWidth("日本"))
	assert.Equal(t, "日…", Truncate("日本語", 4))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "abcdef", PadRight("abcdef", 3))
	assert.Equal(t, "日本 ", PadRight("日本", 5))
}
