package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bluebeam/bluebeam/internal/logger"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  logger.Level
	}{
		{"debug", logger.DebugLevel},
		{"DEBUG", logger.DebugLevel},
		{"warn", logger.WarnLevel},
		{"error", logger.ErrorLevel},
		{"info", logger.InfoLevel},
		{"", logger.InfoLevel},
		{"bogus", logger.InfoLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.input), "input %q", tc.input)
	}
}
