package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Logger defines the logging interface used by the Device.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Change describes a property value that differs from the one before it.
type Change struct {
	Code        string
	Alias       string
	Value       Value
	Previous    Value
	HadPrevious bool
}

// Device exposes the properties of one physical unit.
//
// All public methods are thread-safe.
type Device struct {
	index     int
	transport Transport
	props     map[string]*property // by code
	names     map[string]string    // lower-case code or alias -> code
	order     []string
	logger    Logger

	hooksMu sync.RWMutex
	hooks   []func(Change)
}

// New creates a Device for the unit at index using the given property table.
// Codes and aliases must be unique across the table.
func New(index int, transport Transport, specs []Spec) (*Device, error) {
	d := &Device{
		index:     index,
		transport: transport,
		props:     make(map[string]*property, len(specs)),
		names:     make(map[string]string, 2*len(specs)),
		logger:    noopLogger{},
	}

	for _, spec := range specs {
		if spec.Code == "" {
			return nil, fmt.Errorf("%w: empty code", ErrInvalidSpec)
		}
		p, err := newProperty(spec)
		if err != nil {
			return nil, err
		}

		for _, name := range []string{spec.Code, spec.Alias} {
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if owner, taken := d.names[key]; taken && owner != spec.Code {
				return nil, fmt.Errorf("%w: %q used by %s and %s", ErrInvalidSpec, name, owner, spec.Code)
			}
			d.names[key] = spec.Code
		}
		if _, dup := d.props[spec.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate code %s", ErrInvalidSpec, spec.Code)
		}

		d.props[spec.Code] = p
		d.order = append(d.order, spec.Code)
	}

	return d, nil
}

// SetLogger sets the logger for the device.
func (d *Device) SetLogger(logger Logger) {
	d.logger = logger
}

// OnChange registers fn to be called once for every value change.
// Hooks run on the goroutine that observed the change. Changes of one
// property are delivered in the order they were recorded; a hook must not
// read or write the property it is notified about.
func (d *Device) OnChange(fn func(Change)) {
	d.hooksMu.Lock()
	d.hooks = append(d.hooks, fn)
	d.hooksMu.Unlock()
}

// Index returns the device index passed to the transport.
func (d *Device) Index() int {
	return d.index
}

// Properties returns the property table in declaration order.
func (d *Device) Properties() []Spec {
	specs := make([]Spec, 0, len(d.order))
	for _, code := range d.order {
		specs = append(specs, d.props[code].spec)
	}
	return specs
}

// Lookup resolves a code or alias, case-insensitively.
func (d *Device) Lookup(name string) (Spec, bool) {
	p, err := d.lookup(name)
	if err != nil {
		return Spec{}, false
	}
	return p.spec, true
}

func (d *Device) lookup(name string) (*property, error) {
	code, ok := d.names[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return d.props[code], nil
}

// Get reads the current value of a property from the transport.
func (d *Device) Get(ctx context.Context, name string) (Value, error) {
	p, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if !p.spec.Capabilities.Readable {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, p.spec.Code)
	}

	p.mu.Lock()
	v, err := d.transport.Read(ctx, d.index, p.spec.Code)
	if err != nil {
		p.mu.Unlock()
		d.logger.Warn("property read failed", "property", p.spec.Code, "error", err)
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, p.spec.Code, err)
	}
	change, changed := p.record(v)
	if changed {
		p.emitMu.Lock()
	}
	p.mu.Unlock()

	d.logger.Debug("property read", "property", p.spec.Code, "value", v)
	if changed {
		d.emit(change)
		p.emitMu.Unlock()
	}
	return v, nil
}

// Set validates v against the property's schema and writes it.
func (d *Device) Set(ctx context.Context, name string, v Value) error {
	p, err := d.lookup(name)
	if err != nil {
		return err
	}
	if !p.spec.Capabilities.Writable {
		return fmt.Errorf("%w: %s", ErrNotWritable, p.spec.Code)
	}
	if err := validate(p.schema, v); err != nil {
		return fmt.Errorf("setting %s: %w", p.spec.Code, err)
	}

	p.mu.Lock()
	if err := d.transport.Write(ctx, d.index, p.spec.Code, v); err != nil {
		p.mu.Unlock()
		d.logger.Warn("property write failed", "property", p.spec.Code, "error", err)
		return fmt.Errorf("%w: writing %s: %w", ErrTransport, p.spec.Code, err)
	}
	change, changed := p.record(v)
	if changed {
		p.emitMu.Lock()
	}
	p.mu.Unlock()

	d.logger.Debug("property written", "property", p.spec.Code, "value", v)
	if changed {
		d.emit(change)
		p.emitMu.Unlock()
	}
	return nil
}

// Observe returns a handle that resolves on the next change of the property.
func (d *Device) Observe(name string) (*Observation, error) {
	p, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if !p.spec.Capabilities.Observable {
		return nil, fmt.Errorf("%w: %s", ErrNotObservable, p.spec.Code)
	}

	o := newObservation(p)
	p.addObserver(o)
	return o, nil
}

func (d *Device) emit(c Change) {
	d.hooksMu.RLock()
	hooks := d.hooks
	d.hooksMu.RUnlock()

	for _, fn := range hooks {
		fn(c)
	}
}
