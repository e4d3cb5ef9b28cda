// Package discovery announces the API on the local network with DNS-SD.
//
// The service is published as _wot._tcp (configurable) on the API port.
// Its TXT record points clients at the Thing Description:
//
//	td=/api
//	type=Thing
//	uuid=<thing uuid>
package discovery
