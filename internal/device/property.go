package device

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ScalarSchema accepts any JSON number, string or boolean. It is the write
// schema of every property in the default table.
const ScalarSchema = `{"type": ["number", "string", "boolean"]}`

// Capabilities is the set of operations a property supports.
type Capabilities struct {
	Readable   bool `json:"readable"`
	Writable   bool `json:"writable"`
	Observable bool `json:"observable"`
}

// All is the capability set with every operation enabled.
var All = Capabilities{Readable: true, Writable: true, Observable: true}

// Spec is the static description of a property.
type Spec struct {
	// Code is the short identifier understood by the hardware (c0, e, y...).
	Code string `json:"code"`

	// Alias is the human-readable name served alongside the code.
	Alias string `json:"alias"`

	Capabilities Capabilities `json:"capabilities"`

	// Schema is a JSON Schema that written values must satisfy. Empty
	// disables write validation.
	Schema string `json:"schema,omitempty"`
}

// DefaultProperties returns the property table of the solar power monitor.
func DefaultProperties() []Spec {
	return []Spec{
		{Code: "c0", Alias: "panel", Capabilities: All, Schema: ScalarSchema},
		{Code: "c1", Alias: "charge", Capabilities: All, Schema: ScalarSchema},
		{Code: "c2", Alias: "output", Capabilities: All, Schema: ScalarSchema},
		{Code: "e", Alias: "environment", Capabilities: All, Schema: ScalarSchema},
		{Code: "s", Alias: "status", Capabilities: All, Schema: ScalarSchema},
		{Code: "d", Alias: "dispmode", Capabilities: All, Schema: ScalarSchema},
		{Code: "y", Alias: "period", Capabilities: All, Schema: ScalarSchema},
	}
}

// property is the runtime state of one Spec.
type property struct {
	spec   Spec
	schema *gojsonschema.Schema

	// mu serialises transport access and value bookkeeping.
	mu          sync.Mutex
	current     Value
	previous    Value
	hasValue    bool
	hadPrevious bool

	// emitMu orders OnChange delivery. It is taken before mu is released
	// and held while hooks run, so hooks see changes in write order.
	emitMu sync.Mutex

	// obsMu guards observers separately so that Cancel never waits on I/O.
	obsMu     sync.Mutex
	observers []*Observation
}

func newProperty(spec Spec) (*property, error) {
	p := &property{spec: spec}
	if spec.Schema == "" {
		return p, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(spec.Schema))
	if err != nil {
		return nil, fmt.Errorf("%w: compiling schema of %s: %w", ErrInvalidSpec, spec.Code, err)
	}
	p.schema = schema
	return p, nil
}

// record stores v as the current value. Must be called with p.mu held.
// If the value changed, every pending observer is resolved and the change
// is returned with ok set.
func (p *property) record(v Value) (Change, bool) {
	prev, had := p.current, p.hasValue
	p.previous, p.hadPrevious = prev, had
	p.current, p.hasValue = v, true

	if had && sameValue(prev, v) {
		return Change{}, false
	}

	p.obsMu.Lock()
	pending := p.observers
	p.observers = nil
	p.obsMu.Unlock()

	for _, o := range pending {
		o.resolve(v)
	}

	return Change{
		Code:        p.spec.Code,
		Alias:       p.spec.Alias,
		Value:       v,
		Previous:    prev,
		HadPrevious: had,
	}, true
}

func (p *property) addObserver(o *Observation) {
	p.obsMu.Lock()
	p.observers = append(p.observers, o)
	p.obsMu.Unlock()
}

func (p *property) removeObserver(o *Observation) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	for i, pending := range p.observers {
		if pending == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *property) pendingObservers() int {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	return len(p.observers)
}
