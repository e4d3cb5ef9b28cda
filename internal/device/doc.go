// Package device provides the property interface of the solar power monitor.
//
// A Device owns a fixed table of properties (panel, charge and output
// voltages, environment, status, display mode, sampling period). Each
// property is read and written through a Transport and remembers its
// current and previous value so that observers can be woken on change.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                             Device                               │
//	│                                                                  │
//	│  ┌────────────────┐   ┌────────────────┐   ┌────────────────┐    │
//	│  │   property c0  │   │   property c1  │   │   property y   │    │
//	│  │  mutex, value, │   │  mutex, value, │...│  mutex, value, │    │
//	│  │  observers     │   │  observers     │   │  observers     │    │
//	│  └───────┬────────┘   └───────┬────────┘   └───────┬────────┘    │
//	└──────────│────────────────────│────────────────────│─────────────┘
//	           ▼                    ▼                    ▼
//	┌──────────────────────────────────────────────────────────────────┐
//	│            Transport (MemoryTransport / CommandTransport)        │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Spec: static description of a property (code, alias, capabilities, schema)
//   - Device: runtime state and the Get/Set/Observe operations
//   - Observation: one-shot handle resolved on the next change
//   - Transport: how values reach the hardware
//
// # Usage
//
//	dev, err := device.New(0, device.NewMemoryTransport(), device.DefaultProperties())
//	if err != nil {
//	    return err
//	}
//	v, err := dev.Get(ctx, "c0")
//
// # Thread Safety
//
// Operations on the same property are serialised by that property's mutex.
// Operations on different properties never contend.
package device
