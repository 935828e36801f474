package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got)

	_, err = NormalizeEmail("not-an-email")
	assert.Error(t, err)
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("+1 (555) 010-9999")
	require.NoError(t, err)
	assert.Equal(t, "15550109999", got)

	_, err = NormalizePhone("555-0100")
	assert.Error(t, err)

	// five Arabic-Indic digits are ten bytes but only five runes
	_, err = NormalizePhone("٠١٢٣٤")
	assert.Error(t, err)

	got, err = NormalizePhone("٠١٢ 0801 234 5678")
	require.NoError(t, err)
	assert.Equal(t, "08012345678", got)
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(strings.Repeat("x", 7)))
	assert.NoError(t, ValidatePassword(strings.Repeat("x", 8)))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Provider")
	assert.True(t, ok)
	assert.Equal(t, RoleProvider, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}
