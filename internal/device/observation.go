package device

import (
	"context"
	"sync"
)

// Observation is a one-shot handle on the next change of a property.
// It is resolved at most once; after that it holds the new value.
type Observation struct {
	prop *property
	done chan struct{}
	once sync.Once

	value Value
}

func newObservation(p *property) *Observation {
	return &Observation{
		prop: p,
		done: make(chan struct{}),
	}
}

func (o *Observation) resolve(v Value) {
	o.once.Do(func() {
		o.value = v
		close(o.done)
	})
}

// Code returns the identifier of the observed property.
func (o *Observation) Code() string {
	return o.prop.spec.Code
}

// Done is closed when the observation resolves.
func (o *Observation) Done() <-chan struct{} {
	return o.done
}

// Value returns the value that resolved the observation.
// It is only meaningful after Done is closed.
func (o *Observation) Value() Value {
	select {
	case <-o.done:
		return o.value
	default:
		return nil
	}
}

// Wait blocks until the observation resolves or ctx ends.
// It does not cancel the observation; call Cancel for that.
func (o *Observation) Wait(ctx context.Context) (Value, error) {
	select {
	case <-o.done:
		return o.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel withdraws a pending observation. It is a no-op once resolved.
func (o *Observation) Cancel() {
	o.prop.removeObserver(o)
}
