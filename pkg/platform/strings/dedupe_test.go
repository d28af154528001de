package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"empty", []string{}, []string{}},
		{"broker list with blanks", []string{" kafka-1:9092", "", "kafka-2:9092 ", "  "}, []string{"kafka-1:9092", "kafka-2:9092"}},
		{"repeated brokers keep first position", []string{"b:9092", "a:9092", "b:9092"}, []string{"b:9092", "a:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
