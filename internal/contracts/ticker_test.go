package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"aapl", "AAPL", false},
		{"  msft ", "MSFT", false},
		{"brk.b", "BRK.B", false},
		{"^gspc", "^GSPC", false},
		{"", "", true},
		{"   ", "", true},
		{"TOOLONGTICKER", "", true},
		{"AB CD", "", true},
		{"A$B", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTicker(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTicker))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTickers(t *testing.T) {
	valid, invalid := NormalizeTickers([]string{"aapl", "AAPL", "", "msft", "bad ticker"})

	assert.Equal(t, []string{"AAPL", "MSFT"}, valid)
	assert.Equal(t, []string{"", "bad ticker"}, invalid)
}
