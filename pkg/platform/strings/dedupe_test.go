package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "trims and drops empties", input: []string{"  foo ", "", "  ", "bar  "}, expected: []string{"foo", "bar"}},
		{name: "dedupes preserving order", input: []string{"foo", "bar", "foo", "baz", "bar"}, expected: []string{"foo", "bar", "baz"}},
		{name: "preserves case", input: []string{"Foo", "foo"}, expected: []string{"Foo", "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "lowercases and dedupes", input: []string{"Foo", "foo", "FOO"}, expected: []string{"foo"}},
		{name: "trims then lowercases", input: []string{"  NS1.Example.COM ", "ns1.example.com"}, expected: []string{"ns1.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
