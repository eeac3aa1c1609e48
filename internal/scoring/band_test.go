package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandScoreFor(t *testing.T) {
	want := map[int]float64{
		40: 9.0, 39: 9.0,
		38: 8.5, 37: 8.5,
		36: 8.0, 35: 8.0,
		34: 7.5, 33: 7.5, 32: 7.5,
		31: 7.0, 30: 7.0,
		29: 6.5, 28: 6.5, 27: 6.5, 26: 6.5,
		25: 6.0, 24: 6.0, 23: 6.0,
		22: 5.5, 21: 5.5, 20: 5.5, 19: 5.5, 18: 5.5,
		17: 5.0, 16: 5.0,
		15: 4.5, 14: 4.5, 13: 4.5,
		12: 4.0, 11: 4.0,
	}
	for n := 0; n <= 10; n++ {
		want[n] = 3.5
	}
	for n, band := range want {
		assert.Equal(t, band, BandScoreFor(n), "correct=%d", n)
	}
}

func TestBandScoreForOutOfRange(t *testing.T) {
	assert.Equal(t, 9.0, BandScoreFor(41))
	assert.Equal(t, 9.0, BandScoreFor(1000))
	assert.Equal(t, 3.5, BandScoreFor(-1))
	assert.Equal(t, 3.5, BandScoreFor(-40))
}

func TestBandTableRowsAreContiguous(t *testing.T) {
	rows := IELTSListening.Rows
	require.NotEmpty(t, rows)
	assert.Equal(t, IELTSListening.Full, rows[0].Max)
	for i := 1; i < len(rows); i++ {
		assert.Equal(t, rows[i-1].Min-1, rows[i].Max, "gap before row %d", i)
		assert.Less(t, rows[i].Band, rows[i-1].Band)
	}
}

func TestBandScoreMonotonic(t *testing.T) {
	prev := BandScoreFor(-5)
	for n := -4; n <= 45; n++ {
		cur := BandScoreFor(n)
		assert.GreaterOrEqual(t, cur, prev, "correct=%d", n)
		prev = cur
	}
}

func TestRegistry(t *testing.T) {
	s, ok := Lookup(KeyIELTSListening)
	require.True(t, ok)
	assert.Equal(t, 40, s.FullLength())
	assert.Equal(t, 7.0, s.BandScoreFor(30))

	_, ok = Lookup("toefl.listening")
	assert.False(t, ok)

	Register("", IELTSListening)
	_, ok = Lookup("")
	assert.False(t, ok)
}

func TestRescale(t *testing.T) {
	tests := []struct {
		correct, total, full, want int
	}{
		{3, 3, 40, 40},
		{0, 3, 40, 0},
		{30, 40, 40, 30},
		{10, 20, 40, 20},
		{1, 3, 40, 13}, // 13.33
		{2, 3, 40, 27}, // 26.67
		{1, 80, 40, 1}, // 0.5 rounds up
		{5, 0, 40, 5},
		{-2, 10, 40, 0},
		{12, 10, 40, 40},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Rescale(tc.correct, tc.total, tc.full), "%d/%d", tc.correct, tc.total)
	}
}
