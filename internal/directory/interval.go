package directory

import "time"

// renewalMargin is how long before expiry a lease is renewed.
const renewalMargin = 100 * time.Second

// RenewalInterval returns how often a lease of ttl is renewed.
//
// Leases longer than the margin are renewed ttl-100s after registration.
// Shorter leases are renewed at half their length, and never more often
// than once a second.
func RenewalInterval(ttl time.Duration) time.Duration {
	if ttl > renewalMargin {
		return ttl - renewalMargin
	}
	half := ttl / 2
	if half < time.Second {
		return time.Second
	}
	return half
}
