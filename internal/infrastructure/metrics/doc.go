// Package metrics exposes Prometheus metrics and a health endpoint on a
// listener of their own.
//
// Collectors live in a private registry, so tests can create as many
// Metrics values as they like without clashing on the global one.
//
//	solarpower_http_requests_total{method,status}
//	solarpower_property_value{property}
//	solarpower_device_errors_total{property,op}
//	solarpower_registrations_total{directory,outcome}
//
// Go runtime and process collectors are registered as well.
package metrics
