// Package render turns a sealed fault context into caller-visible output.
//
// A Renderer resolves a template, substitutes {{token}} placeholders from the
// context and writes the result through a BufferStack in one of three
// presentation modes: full (buffered output is discarded and the fault becomes
// the whole body), overlay (a fixed-position container appended to existing
// output) or append (a plain fragment in normal flow). Headless callers get
// markup stripped to text.
package render
