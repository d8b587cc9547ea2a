// Package ports defines the interfaces between the guest-side logic and the host.
// These ports enable dependency inversion - domain logic depends on abstractions,
// and infrastructure adapters implement these interfaces.
package ports
