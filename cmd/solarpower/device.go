package main

import (
	"fmt"
	"time"

	"github.com/nerrad567/solarpower/internal/device"
	"github.com/nerrad567/solarpower/internal/infrastructure/config"
)

// buildDevice creates the device with the configured transport and
// property table.
func buildDevice(cfg config.DeviceConfig) (*device.Device, error) {
	var transport device.Transport
	switch cfg.Transport {
	case "command":
		transport = device.NewCommandTransport(cfg.Command.Get, cfg.Command.Set,
			time.Duration(cfg.Command.Timeout)*time.Second)
	default:
		transport = device.NewMemoryTransport()
	}

	dev, err := device.New(cfg.Index, transport, applyPropertyOverrides(device.DefaultProperties(), cfg.Properties))
	if err != nil {
		return nil, fmt.Errorf("creating device: %w", err)
	}
	return dev, nil
}

// applyPropertyOverrides merges overrides into specs by code. Codes not
// present in specs are appended as fully capable scalar properties.
func applyPropertyOverrides(specs []device.Spec, overrides []config.PropertyConfig) []device.Spec {
	out := make([]device.Spec, len(specs))
	copy(out, specs)

	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Code] = i
	}

	for _, o := range overrides {
		i, ok := index[o.Code]
		if !ok {
			out = append(out, device.Spec{Code: o.Code, Capabilities: device.All, Schema: device.ScalarSchema})
			i = len(out) - 1
			index[o.Code] = i
		}

		s := &out[i]
		if o.Alias != "" {
			s.Alias = o.Alias
		}
		if o.Readable != nil {
			s.Capabilities.Readable = *o.Readable
		}
		if o.Writable != nil {
			s.Capabilities.Writable = *o.Writable
		}
		if o.Observable != nil {
			s.Capabilities.Observable = *o.Observable
		}
		if o.Schema != "" {
			s.Schema = o.Schema
		}
	}
	return out
}
