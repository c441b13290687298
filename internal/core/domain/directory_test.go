package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededDirectory(t *testing.T) *Directory {
	t.Helper()
	d := NewDirectory()
	require.True(t, d.Register("Sam", "Smith", "876-300-0003"))
	require.True(t, d.Register("Ann", "Smith", "876-300-0001"))
	require.False(t, d.Register("Sam", "Smith", "1-0-0-0-0000"))
	require.True(t, d.Register("Sam", "Smith", "901-300-0002"))
	return d
}

func TestDirectory_RegisterDuplicatePhone(t *testing.T) {
	d := NewDirectory()
	assert.True(t, d.Register("Wanda", "Walker", "876-131-0010"))
	assert.False(t, d.Register("Someone", "Else", "876-131-0010"))
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, "Walker,  Wanda", d.Lookup("876-131-0010").FullName())
}

func TestDirectory_RegisterInvalidPhone(t *testing.T) {
	d := NewDirectory()
	assert.False(t, d.Register("Wanda", "Walker", "8761310010"))
	assert.Zero(t, d.Len())
}

func TestDirectory_Finds(t *testing.T) {
	d := seededDirectory(t)

	phones := func(us []*User) []string {
		out := make([]string, 0, len(us))
		for _, u := range us {
			out = append(out, u.Key())
		}
		return out
	}

	testCases := []struct {
		name string
		find func() []*User
		want []string
	}{
		{"name exact", func() []*User { return d.FindByName("Smith,  Sam") }, []string{"876-300-0003", "901-300-0002"}},
		{"name single space", func() []*User { return d.FindByName("Smith, Sam") }, []string{}},
		{"name substring", func() []*User { return d.FindByNameSubstring("Smith") }, []string{"876-300-0001", "876-300-0003", "901-300-0002"}},
		{"phone prefix", func() []*User { return d.FindByPhonePrefix("876") }, []string{"876-300-0001", "876-300-0003"}},
		{"phone postfix", func() []*User { return d.FindByPhonePostfix("0002") }, []string{"901-300-0002"}},
		{"phone substring", func() []*User { return d.FindByPhoneSubstring("-300-") }, []string{"876-300-0001", "876-300-0003", "901-300-0002"}},
		{"empty query", func() []*User { return d.FindByPhonePrefix("") }, []string{}},
		{"no match", func() []*User { return d.FindByNameSubstring("Jones") }, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, phones(tc.find()))
		})
	}
}

func TestDirectory_FindByPhone(t *testing.T) {
	d := seededDirectory(t)
	p, _ := ParsePhoneNumber("901-300-0002")
	require.NotNil(t, d.FindByPhone(p))
	assert.Nil(t, d.FindByPhone(PhoneNumber{}))
	assert.Nil(t, d.Lookup("000-000-0000"))
	assert.Nil(t, d.Lookup("garbage"))
}
