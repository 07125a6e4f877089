// Package events fans captured faults out to interested collaborators such as
// the logging sink, metrics and the debug panel.
//
// It is intentionally not durable and not asynchronous: a fault is delivered
// to every subscriber before Publish returns.
package events
