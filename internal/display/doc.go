// Package display defines the structured event sink the proxy core emits
// to (spec.md §6) and a concrete logrus-backed implementation. Terminal
// colour, banner rendering, and local-IP discovery are explicitly out of
// scope here (spec.md §1) — LogrusSink emits structured fields and leaves
// presentation to whatever reads the log stream.
package display
