package rut

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "12345678-5", "12345678-5"},
		{"no dash", "123456785", "12345678-5"},
		{"dotted", "12.345.678-5", "12345678-5"},
		{"dotted no dash", "12.345.6785", "12345678-5"},
		{"lowercase k", "9876543-k", "9876543-K"},
		{"lowercase k no dash", "9876543k", "9876543-K"},
		{"garbage stripped", " 12a345b678/5 ", "12345678-5"},
		{"empty", "", ""},
		{"single char", "5", "5"},
		{"only garbage", "abc./ ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"12345678-5", "123456785", "12.345.678-k", "9k", "", "7"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeSingleDash(t *testing.T) {
	for _, in := range []string{"123456785", "12.345.678-5", "9876543k"} {
		got := Normalize(in)
		assert.Equal(t, 1, strings.Count(got, "-"), "input %q -> %q", in, got)
		last := got[len(got)-1]
		if last < '0' || last > '9' {
			assert.Equal(t, byte('K'), last)
		}
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "123456785", Clean("12.345.678-5"))
	assert.Equal(t, "9876543K", Clean("9.876.543-k"))
	assert.Equal(t, "", Clean("--..--"))
}

func TestBody(t *testing.T) {
	assert.Equal(t, "12345678", Body("12.345.678-5"))
	assert.Equal(t, "12345678", Body("123456785"))
	assert.Equal(t, "9876543", Body("9876543-K"))
}
