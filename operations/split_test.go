package operations

import (
	"testing"

	"github.com/go-sif/sifplan/errors"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	parts := intParts(t, []interface{}{1, 2, 3, 4, 5, 6, 7}, []interface{}{8, 9, 10})
	for _, m := range []int{1, 3, 4, 10, 12} {
		it, err := Split(track(parts...), intSchema(), m)
		require.Nil(t, err)
		out := drain(t, it)
		require.Len(t, out, m)
		require.Equal(t, 10, totalRows(out))
		lo, hi := out[0].GetNumRows(), out[0].GetNumRows()
		for _, p := range out {
			if p.GetNumRows() < lo {
				lo = p.GetNumRows()
			}
			if p.GetNumRows() > hi {
				hi = p.GetNumRows()
			}
		}
		require.LessOrEqual(t, hi-lo, 1)
		require.Equal(t, column(t, parts, "a"), column(t, out, "a"))
	}
	_, err := Split(track(parts...), intSchema(), 0)
	require.IsType(t, &errors.ConfigurationError{}, err)
}

func TestCoalesce(t *testing.T) {
	parts := intParts(t, []interface{}{1}, []interface{}{2, 3}, []interface{}{4}, []interface{}{5, 6}, []interface{}{7})
	it, err := Coalesce(track(parts...), intSchema(), 2)
	require.Nil(t, err)
	out := drain(t, it)
	require.Len(t, out, 2)
	require.Equal(t, 3, out[0].GetNumRows())
	require.Equal(t, column(t, parts, "a"), column(t, out, "a"))

	it, err = Coalesce(track(parts...), intSchema(), 8)
	require.Nil(t, err)
	require.Len(t, drain(t, it), 5)
	_, err = Coalesce(track(parts...), intSchema(), -2)
	require.IsType(t, &errors.ConfigurationError{}, err)
}
