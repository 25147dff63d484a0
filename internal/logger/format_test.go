package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAnsiCodes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"single colour code", "\x1b[32mgreen\x1b[0m", "green"},
		{"bold and colour", "\x1b[1;31mloud\x1b[0m text", "loud text"},
		{"empty string", "", ""},
		{"escape without bracket", "a\x1bb", "a\x1bb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripAnsiCodes(tt.input))
		})
	}
}
