package bruteforce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

func TestOdometer_Configure(t *testing.T) {
	tests := []struct {
		name    string
		depth   int
		ranges  [6]int
		wantErr error
		want    Frame
	}{
		{
			name:   "ordered",
			depth:  0,
			ranges: [6]int{0, 50, -40, 40, -2, 2},
			want: Frame{
				Forward: Range{Min: 0, Max: 50, Current: 0},
				Strafe:  Range{Min: -40, Max: 40, Current: -40},
				Turn:    Range{Min: -2, Max: 2, Current: -2},
			},
		},
		{
			name:   "inverted pairs are sorted",
			depth:  3,
			ranges: [6]int{50, 0, 40, -40, 2, -2},
			want: Frame{
				Forward: Range{Min: 0, Max: 50, Current: 0},
				Strafe:  Range{Min: -40, Max: 40, Current: -40},
				Turn:    Range{Min: -2, Max: 2, Current: -2},
			},
		},
		{
			name:    "negative depth",
			depth:   -1,
			wantErr: ErrInvalidDepth,
		},
		{
			name:    "depth at capacity",
			depth:   MaxDepth,
			wantErr: ErrInvalidDepth,
		},
		{
			name:    "forward too large",
			depth:   0,
			ranges:  [6]int{0, 128, 0, 0, 0, 0},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "turn too small",
			depth:   0,
			ranges:  [6]int{0, 0, 0, 0, -129, 0},
			wantErr: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Odometer
			r := tt.ranges
			err := o.Configure(tt.depth, r[0], r[1], r[2], r[3], r[4], r[5])
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.Frame(tt.depth))
		})
	}
}

func TestOdometer_CarryOrder(t *testing.T) {
	var o Odometer
	require.NoError(t, o.Configure(0, 0, 1, 0, 1, 0, 1))

	// turn cycles fastest, then strafe, then forward
	want := [][3]int{
		{0, 0, 1},
		{0, 1, 0},
		{0, 1, 1},
		{1, 0, 0},
		{1, 0, 1},
		{1, 1, 0},
		{1, 1, 1},
	}
	for i, w := range want {
		pivot, ok := o.Advance(1)
		require.True(t, ok, "step %d", i)
		assert.Equal(t, 0, pivot)
		f := o.Frame(0)
		assert.Equal(t, w, [3]int{f.Forward.Current, f.Strafe.Current, f.Turn.Current}, "step %d", i)
	}

	_, ok := o.Advance(1)
	assert.False(t, ok)
	f := o.Frame(0)
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{f.Forward.Current, f.Strafe.Current, f.Turn.Current})
}

func TestOdometer_PivotIsShallowestChangedDepth(t *testing.T) {
	var o Odometer
	require.NoError(t, o.Configure(0, 0, 0, 0, 0, 0, 1))
	require.NoError(t, o.Configure(1, 0, 0, 0, 0, 0, 2))

	var pivots []int
	for {
		pivot, ok := o.Advance(2)
		if !ok {
			break
		}
		pivots = append(pivots, pivot)
	}
	assert.Equal(t, []int{1, 1, 0, 1, 1}, pivots)
}

func TestOdometer_ExhaustiveCoverage(t *testing.T) {
	var o Odometer
	require.NoError(t, o.Configure(0, 0, 2, -1, 0, 0, 0))
	require.NoError(t, o.Configure(1, 0, 0, 0, 0, -1, 1))
	require.NoError(t, o.Configure(2, 10, 11, 0, 0, 0, 1))

	volume, err := o.Volume(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6*3*4), volume)

	seen := make(map[string]struct{})
	for {
		key := strings.Join(ticcmd.Strings(o.Sequence(3)), "|")
		_, dup := seen[key]
		require.False(t, dup, "sequence %s enumerated twice", key)
		seen[key] = struct{}{}

		if _, ok := o.Advance(3); !ok {
			break
		}
	}
	assert.Len(t, seen, int(volume))
}

func TestOdometer_Volume(t *testing.T) {
	var o Odometer

	v, err := o.Volume(MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v, "unconfigured depths hold a single zero command")

	_, err = o.Volume(0)
	assert.ErrorIs(t, err, ErrInvalidDepth)
	_, err = o.Volume(MaxDepth + 1)
	assert.ErrorIs(t, err, ErrInvalidDepth)

	for i := 0; i < MaxDepth; i++ {
		require.NoError(t, o.Configure(i, AxisMin, AxisMax, AxisMin, AxisMax, AxisMin, AxisMax))
	}
	v, err = o.Volume(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<48, v)

	_, err = o.Volume(MaxDepth)
	assert.ErrorIs(t, err, ErrVolumeOverflow)
}

func TestFrame_Command(t *testing.T) {
	var o Odometer
	require.NoError(t, o.Configure(0, 50, 50, -40, -40, 2, 2))

	cmd := o.Command(0)
	assert.Equal(t, ticcmd.Command{Forward: 50, Side: -40, AngleTurn: 2 << 8}, cmd)
	assert.Equal(t, 2, cmd.Turn())
	assert.Equal(t, "F 50:50 S -40:-40 T 2:2", o.Frame(0).String())
}
