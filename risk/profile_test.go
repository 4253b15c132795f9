package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"low", Low, false},
		{"medium", Medium, false},
		{"high", High, false},
		{"", "", true},
		{"LOW", "", true},
		{"yolo", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	th, err := ProfileFor(Medium)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, th.TakeProfit, 1e-12)
	assert.InDelta(t, 0.10, th.StopLoss, 1e-12)
	assert.InDelta(t, 0.03, th.DailyTarget, 1e-12)
	assert.InDelta(t, 0.015, th.DailyMaxLoss, 1e-12)

	_, err = ProfileFor(Mode("extreme"))
	assert.Error(t, err)
}

func TestMaxTradesPerDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		want int
	}{
		{Low, 1},
		{Medium, 3},
		{High, 5},
	}

	for _, tt := range tests {
		n, err := MaxTradesPerDay(tt.mode)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n)
	}

	_, err := MaxTradesPerDay(Mode(""))
	assert.Error(t, err)
}
