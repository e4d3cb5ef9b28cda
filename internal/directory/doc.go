// Package directory registers the Thing Description with Thing Directories.
//
// Each configured directory receives
//
//	POST <url>?lt=<ttl>
//	Content-Type: application/ld+json
//
// with the rendered document as body. Registrations are leases: Run repeats
// them every RenewalInterval(ttl) so that they never expire while the
// service is up. Directories are independent; one failing has no effect on
// the others, and a failed registration is only logged until the next cycle.
package directory
