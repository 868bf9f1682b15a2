package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{" error ", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		logger := NewLogger(tt.input)
		if logger.GetLevel() != tt.expected {
			t.Errorf("NewLogger(%q): expected level %s, got %s", tt.input, tt.expected, logger.GetLevel())
		}
	}
}
