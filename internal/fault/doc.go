// Package fault defines the record describing one captured fault.
//
// A Context is built by the trap, enriched by the middleware chain and then
// sealed. After sealing it is shared by reference with the recorder, event
// subscribers and the renderer, and any attempt to mutate it panics with
// ErrSealed. Getters hand out copies so a sealed Context cannot be changed
// through the values it returns.
package fault
