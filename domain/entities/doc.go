// Package entities provides the value model and message types exchanged with the host.
// These types carry no behavior tied to a particular transport or codec.
package entities
