// Package thing builds the Thing Description that advertises the API.
//
// Config holds the identity of the service (scheme, host name, port, device
// index) together with the values derived from it: the base URL of the API
// and a name-based UUID that stays stable for as long as the base URL does.
//
// Render substitutes those values into a template. Generator re-reads the
// template on every call so that each request and each directory
// registration sees the current file.
//
// Placeholders are written with triple braces and matched without regard to
// case, for example {{{uuid}}} or {{{BASE}}}:
//
//	protocol  URL scheme
//	name      advertised host name
//	device    device index
//	base      <protocol>://<name>:<port>/api
//	uuid      UUIDv5 of base in the URL namespace
package thing
