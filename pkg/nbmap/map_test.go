package nbmap_test

import (
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/onnlucky/nbhashmap-go/pkg/nbmap"
)

func newTestMap(t *testing.T) *nbmap.Map[string, string] {
	t.Helper()
	return nbmap.New[string, string](testHash, testEquals, func(string) {}, nbmap.Options{InitialCapacity: 4})
}

func newTestMapN[V comparable](t *testing.T, initialCapacity int) *nbmap.Map[string, V] {
	t.Helper()
	return nbmap.New[string, V](testHash, testEquals, func(string) {}, nbmap.Options{InitialCapacity: initialCapacity})
}

func testHash(k string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(k); i++ {
		h ^= uint32(k[i])
		h *= 16777619
	}
	return h
}

func testEquals(a, b string) bool { return a == b }

func Test_New_Panics_On_Nil_Capability(t *testing.T) {
	t.Parallel()

	require.PanicsWithValue(t, nbmap.ErrNilCapability, func() {
		nbmap.New[string, string](nil, testEquals, func(string) {}, nbmap.Options{})
	})
	require.PanicsWithValue(t, nbmap.ErrNilCapability, func() {
		nbmap.New[string, string](testHash, nil, func(string) {}, nbmap.Options{})
	})
	require.PanicsWithValue(t, nbmap.ErrNilCapability, func() {
		nbmap.New[string, string](testHash, testEquals, nil, nbmap.Options{})
	})
}

func Test_Get_On_Empty_Map_Reports_Absent(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	_, ok := m.Get("missing")
	require.False(t, ok)
}

func Test_PutIf_Unconditional_Insert_Then_Get(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	prior := m.PutIf("a", nbmap.Some("1"), nbmap.Ignore[string]())
	_, existed := prior.Get()
	require.False(t, existed)

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)
	require.Equal(t, 1, m.Size())
}

func Test_PutIf_Overwrite_Returns_Prior_Value(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	m.PutIf("a", nbmap.Some("1"), nbmap.Ignore[string]())
	prior := m.PutIf("a", nbmap.Some("2"), nbmap.Ignore[string]())

	v, existed := prior.Get()
	require.True(t, existed)
	require.Equal(t, "1", v)

	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", got)
	require.Equal(t, 1, m.Size(), "overwrite must not change live count")
}

func Test_PutIf_Delete_Existing_Key(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	m.PutIf("a", nbmap.Some("1"), nbmap.Ignore[string]())
	prior := m.PutIf("a", nbmap.None[string](), nbmap.Ignore[string]())

	v, existed := prior.Get()
	require.True(t, existed)
	require.Equal(t, "1", v)

	_, ok := m.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, m.Size())
}

func Test_PutIf_Delete_Absent_Key_Is_A_NoOp(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	prior := m.PutIf("never-existed", nbmap.None[string](), nbmap.Ignore[string]())
	_, existed := prior.Get()
	require.False(t, existed)
	require.Equal(t, 0, m.Size())
}

func Test_PutIf_Conditional_Success_When_Expected_Matches(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	m.PutIf("a", nbmap.Some("1"), nbmap.Ignore[string]())
	prior := m.PutIf("a", nbmap.Some("2"), nbmap.Is(nbmap.Some("1")))

	v, existed := prior.Get()
	require.True(t, existed)
	require.Equal(t, "1", v)

	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "2", got)
}

func Test_PutIf_Conditional_Failure_Leaves_Value_Unchanged(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	m.PutIf("a", nbmap.Some("1"), nbmap.Ignore[string]())
	prior := m.PutIf("a", nbmap.Some("2"), nbmap.Is(nbmap.Some("not-the-current-value")))

	v, existed := prior.Get()
	require.True(t, existed)
	require.Equal(t, "1", v, "a failed conditional write must report the actual current value")

	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", got, "a failed conditional write must not change the stored value")
}

func Test_PutIf_Insert_Only_If_Absent(t *testing.T) {
	t.Parallel()

	m := newTestMap(t)

	first := m.PutIf("a", nbmap.Some("1"), nbmap.Is(nbmap.None[string]()))
	_, existed := first.Get()
	require.False(t, existed)

	second := m.PutIf("a", nbmap.Some("2"), nbmap.Is(nbmap.None[string]()))
	v, existed := second.Get()
	require.True(t, existed)
	require.Equal(t, "1", v)

	got, _ := m.Get("a")
	require.Equal(t, "1", got, "insert-if-absent must fail once the key already exists")
}

func Test_Forced_Resize_Preserves_All_Entries(t *testing.T) {
	t.Parallel()

	m := newTestMapN[int](t, 4)

	const n = 5000
	for i := 0; i < n; i++ {
		m.PutIf(strconv.Itoa(i), nbmap.Some(i), nbmap.Ignore[int]())
	}

	require.Equal(t, n, m.Size())

	for i := 0; i < n; i++ {
		v, ok := m.Get(strconv.Itoa(i))
		require.True(t, ok, "key %d must survive the resizes triggered by growth", i)
		require.Equal(t, i, v)
	}

	st := m.Stats()
	require.Greater(t, st.Resizes, uint64(0), "inserting 5000 entries into a 4-slot table must trigger at least one resize")
	require.GreaterOrEqual(t, st.TableLength, n)
}

func Test_Concurrent_Hammer_No_Lost_Updates(t *testing.T) {
	t.Parallel()

	m := newTestMapN[int](t, 4)

	const goroutines = 32
	const perGoroutine = 2000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := strconv.Itoa(g*perGoroutine + i)
				m.PutIf(key, nbmap.Some(i), nbmap.Ignore[int]())
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, goroutines*perGoroutine, m.Size())

	var missing []string
	var wrongValue []string

	for g := 0; g < goroutines; g++ {
		for i := 0; i < perGoroutine; i++ {
			key := strconv.Itoa(g*perGoroutine + i)
			v, ok := m.Get(key)
			if !ok {
				missing = append(missing, key)
				continue
			}
			if v != i {
				wrongValue = append(wrongValue, key)
			}
		}
	}

	if diff := cmp.Diff([]string(nil), missing); diff != "" {
		t.Fatalf("keys missing after the concurrent hammer (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string(nil), wrongValue); diff != "" {
		t.Fatalf("keys with a stale/wrong value after the concurrent hammer (-want +got):\n%s", diff)
	}
}

func Test_Mixed_Churn_Converges_To_Expected_Live_Set(t *testing.T) {
	t.Parallel()

	m := newTestMapN[int](t, 4)

	const goroutines = 16
	const keyspace = 64
	const rounds = 500

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				key := strconv.Itoa(g*keyspace + r%keyspace)
				m.PutIf(key, nbmap.Some(r), nbmap.Ignore[int]())
				m.PutIf(key, nbmap.None[int](), nbmap.Ignore[int]())
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, 0, m.Size(), "every inserted key in this workload is deleted before the next round reuses it")
}

func Test_Dispose_Frees_Every_Live_Key(t *testing.T) {
	t.Parallel()

	var freed []string
	var mu sync.Mutex

	m := nbmap.New[string, string](testHash, testEquals, func(k string) {
		mu.Lock()
		freed = append(freed, k)
		mu.Unlock()
	}, nbmap.Options{InitialCapacity: 4})

	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		m.PutIf(k, nbmap.Some(k), nbmap.Ignore[string]())
	}

	m.Dispose()

	require.ElementsMatch(t, keys, freed)
}

func Test_Stats_Reports_Table_Length_And_Resize_Count(t *testing.T) {
	t.Parallel()

	m := newTestMapN[int](t, 4)

	st := m.Stats()
	require.Equal(t, 0, st.Size)
	require.Equal(t, 4, st.TableLength)
	require.Equal(t, uint64(0), st.Resizes)

	for i := 0; i < 1000; i++ {
		m.PutIf(strconv.Itoa(i), nbmap.Some(i), nbmap.Ignore[int]())
	}

	st = m.Stats()
	require.Equal(t, 1000, st.Size)
	require.Greater(t, st.Resizes, uint64(0))
}
