package nbmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests exercise package-internal invariants that aren't reachable
// through the public API alone.

func Test_CallHash_Remaps_Zero_To_One(t *testing.T) {
	t.Parallel()

	m := New[string, string](func(string) uint32 { return 0 }, testEquals, func(string) {}, Options{})

	require.Equal(t, uint32(1), m.callHash("anything"), "a hash of 0 must be remapped so it never collides with PARTIAL")
}

func Test_NextPowerOfTwo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want int
	}{
		{0, 4},
		{1, 4},
		{4, 4},
		{5, 8},
		{8, 8},
		{9, 16},
		{1000, 1024},
	}

	for _, c := range cases {
		require.Equal(t, c.want, nextPowerOfTwo(c.in), "nextPowerOfTwo(%d)", c.in)
	}
}

func Test_IsDeleteAbsentCase(t *testing.T) {
	t.Parallel()

	require.True(t, isDeleteAbsentCase(None[string](), Ignore[string]()))
	require.True(t, isDeleteAbsentCase(None[string](), Is(None[string]())))
	require.False(t, isDeleteAbsentCase(None[string](), Is(Some("x"))))
	require.False(t, isDeleteAbsentCase(Some("x"), Ignore[string]()))
}

func Test_MatchesExpected(t *testing.T) {
	t.Parallel()

	v := "x"

	require.True(t, matchesExpected(Ignore[string](), nil))
	require.True(t, matchesExpected(Ignore[string](), &v))
	require.True(t, matchesExpected(Is(None[string]()), nil))
	require.False(t, matchesExpected(Is(None[string]()), &v))
	require.True(t, matchesExpected(Is(Some("x")), &v))
	require.False(t, matchesExpected(Is(Some("y")), &v))
	require.False(t, matchesExpected(Is(Some("x")), nil))
}

func Test_Slot_Default_State_Is_Free(t *testing.T) {
	t.Parallel()

	tab := newTable[string, string](4)
	s := &tab.slots[0]

	require.Nil(t, s.loadKey())
	require.Equal(t, uint32(0), s.loadHash())
	require.Nil(t, s.loadValue())
}

func Test_Slot_CasKey_Claims_Free_Slot_Exactly_Once(t *testing.T) {
	t.Parallel()

	tab := newTable[string, string](4)
	s := &tab.slots[0]

	k1, k2 := "a", "b"

	require.True(t, s.casKey(nil, &k1))
	require.False(t, s.casKey(nil, &k2), "a second claim of the same slot must fail")
	require.Equal(t, &k1, s.loadKey())
}
