package device

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*Device, *MemoryTransport) {
	t.Helper()
	tr := NewMemoryTransport()
	dev, err := New(1, tr, DefaultProperties())
	require.NoError(t, err)
	return dev, tr
}

// ─── Construction ───────────────────────────────────────────────────

func TestNew_DefaultTable(t *testing.T) {
	dev, _ := newTestDevice(t)

	specs := dev.Properties()
	require.Len(t, specs, 7)
	assert.Equal(t, "c0", specs[0].Code)
	assert.Equal(t, "period", specs[6].Alias)
	assert.Equal(t, 1, dev.Index())
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{"duplicate code", []Spec{{Code: "a"}, {Code: "a"}}},
		{"alias collides with code", []Spec{{Code: "a"}, {Code: "b", Alias: "A"}}},
		{"empty code", []Spec{{Alias: "x"}}},
		{"bad schema", []Spec{{Code: "a", Schema: "{not json"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(0, NewMemoryTransport(), tt.specs)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestLookup_CodeAndAliasAgree(t *testing.T) {
	dev, _ := newTestDevice(t)

	byCode, ok := dev.Lookup("c0")
	require.True(t, ok)
	byAlias, ok := dev.Lookup("Panel")
	require.True(t, ok)
	assert.Equal(t, byCode, byAlias)

	_, ok = dev.Lookup("bogus")
	assert.False(t, ok)
}

// ─── Get / Set ──────────────────────────────────────────────────────

func TestGet_ReadsThroughTransport(t *testing.T) {
	dev, tr := newTestDevice(t)
	tr.Store(1, "c0", json.Number("12.5"))

	v, err := dev.Get(context.Background(), "panel")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.5"), v)
}

func TestGet_UnknownProperty(t *testing.T) {
	dev, _ := newTestDevice(t)

	_, err := dev.Get(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestGet_TransportFailure(t *testing.T) {
	dev, tr := newTestDevice(t)
	tr.Fail("e", errors.New("serial timeout"))

	_, err := dev.Get(context.Background(), "e")
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "serial timeout")
}

func TestSet_ThenGetRoundTrips(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := context.Background()

	require.NoError(t, dev.Set(ctx, "e", json.Number("42")))
	v, err := dev.Get(ctx, "environment")
	require.NoError(t, err)
	assert.Equal(t, json.Number("42"), v)
}

func TestSet_SchemaViolation(t *testing.T) {
	dev, tr := newTestDevice(t)

	err := dev.Set(context.Background(), "d", map[string]any{"mode": 1})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, writes := tr.Calls()
	assert.Zero(t, writes, "invalid values must not reach the transport")
}

func TestSet_TransportFailure(t *testing.T) {
	dev, tr := newTestDevice(t)
	tr.Fail("y", errors.New("busy"))

	err := dev.Set(context.Background(), "period", json.Number("5"))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestCapabilities_Enforced(t *testing.T) {
	tr := NewMemoryTransport()
	dev, err := New(0, tr, []Spec{
		{Code: "ro", Capabilities: Capabilities{Readable: true}},
		{Code: "wo", Capabilities: Capabilities{Writable: true}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, dev.Set(ctx, "ro", json.Number("1")), ErrNotWritable)
	_, err = dev.Get(ctx, "wo")
	assert.ErrorIs(t, err, ErrNotReadable)
	_, err = dev.Observe("ro")
	assert.ErrorIs(t, err, ErrNotObservable)
}

// ─── Observe ────────────────────────────────────────────────────────

func TestObserve_ResolvedOnFirstValue(t *testing.T) {
	dev, _ := newTestDevice(t)

	obs, err := dev.Observe("c1")
	require.NoError(t, err)

	_, err = dev.Get(context.Background(), "c1")
	require.NoError(t, err)

	select {
	case <-obs.Done():
	case <-time.After(time.Second):
		t.Fatal("observation not resolved")
	}
	assert.Equal(t, json.Number("0"), obs.Value())
	assert.Equal(t, "c1", obs.Code())
}

func TestObserve_NotResolvedWhenUnchanged(t *testing.T) {
	dev, tr := newTestDevice(t)
	ctx := context.Background()
	tr.Store(1, "s", "ok")

	_, err := dev.Get(ctx, "s")
	require.NoError(t, err)

	obs, err := dev.Observe("s")
	require.NoError(t, err)

	_, err = dev.Get(ctx, "s")
	require.NoError(t, err)
	assert.Nil(t, obs.Value())

	tr.Store(1, "s", "fault")
	_, err = dev.Get(ctx, "s")
	require.NoError(t, err)

	v, err := obs.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fault", v)
}

func TestObserve_EveryPendingObserverResolvedOnce(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := context.Background()

	var observers []*Observation
	for range 3 {
		obs, err := dev.Observe("c2")
		require.NoError(t, err)
		observers = append(observers, obs)
	}

	require.NoError(t, dev.Set(ctx, "c2", json.Number("3")))
	require.NoError(t, dev.Set(ctx, "c2", json.Number("4")))

	for _, obs := range observers {
		v, err := obs.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, json.Number("3"), v)
	}
	assert.Zero(t, dev.props["c2"].pendingObservers())
}

func TestObserve_WaitTimeoutAndCancel(t *testing.T) {
	dev, _ := newTestDevice(t)

	obs, err := dev.Observe("d")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = obs.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	obs.Cancel()
	assert.Zero(t, dev.props["d"].pendingObservers())

	require.NoError(t, dev.Set(context.Background(), "d", json.Number("2")))
	assert.Nil(t, obs.Value(), "cancelled observation must stay unresolved")
}

// ─── Change hooks ───────────────────────────────────────────────────

func TestOnChange_CalledOncePerChange(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := context.Background()

	var mu sync.Mutex
	var changes []Change
	dev.OnChange(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	require.NoError(t, dev.Set(ctx, "y", json.Number("10")))
	require.NoError(t, dev.Set(ctx, "y", json.Number("10")))
	require.NoError(t, dev.Set(ctx, "y", json.Number("20")))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.False(t, changes[0].HadPrevious)
	assert.Equal(t, "period", changes[1].Alias)
	assert.Equal(t, json.Number("10"), changes[1].Previous)
	assert.Equal(t, json.Number("20"), changes[1].Value)
}

func TestOnChange_DeliveredInWriteOrder(t *testing.T) {
	ctx := context.Background()

	for round := range 200 {
		dev, tr := newTestDevice(t)

		var mu sync.Mutex
		var last Value
		dev.OnChange(func(c Change) {
			runtime.Gosched()
			mu.Lock()
			last = c.Value
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_ = dev.Set(ctx, "e", json.Number(strconv.Itoa(n+1)))
			}(i)
		}
		wg.Wait()

		held, err := tr.Read(ctx, 1, "e")
		require.NoError(t, err)

		mu.Lock()
		seen := last
		mu.Unlock()
		require.Equal(t, held, seen, "round %d", round)
	}
}

// ─── Concurrency ────────────────────────────────────────────────────

func TestConcurrentAccess(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code := DefaultProperties()[n%7].Code
			if n%2 == 0 {
				_ = dev.Set(ctx, code, json.Number("1"))
			} else {
				_, _ = dev.Get(ctx, code)
			}
			if obs, err := dev.Observe(code); err == nil {
				obs.Cancel()
			}
		}(i)
	}
	wg.Wait()
}
