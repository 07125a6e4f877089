// Package errors provides the classified error primitives used across faultline.
//
// These describe failures of the fault pipeline itself (a template that will not
// load, a subscriber that fails, a journal that cannot be written). They are
// distinct from the faults the pipeline captures, which live in package fault.
//
// Example usage:
//
//	err := errors.TemplateError("template not found").
//		WithContext("path", path).
//		Build()
package errors
