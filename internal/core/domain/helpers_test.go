package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, first, last, phone string) *User {
	t.Helper()
	u, ok := NewUser(first, last, phone)
	require.True(t, ok, "phone %q should be valid", phone)
	return u
}

// cast returns a fixed set of users ordered by phone.
func cast(t *testing.T) (w, r, a, b, c *User) {
	t.Helper()
	return mustUser(t, "Wanda", "Walker", "876-100-0001"),
		mustUser(t, "Rick", "Reid", "876-100-0002"),
		mustUser(t, "Ann", "Adams", "876-100-0003"),
		mustUser(t, "Bob", "Brown", "876-100-0004"),
		mustUser(t, "Cleo", "Clark", "876-100-0005")
}
