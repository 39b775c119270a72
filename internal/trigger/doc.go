// Package trigger is the arbitration boundary of the emergency engine. The
// Arbiter enforces the single-incident-in-flight rule across all trigger
// sources, owns the cancellable countdown window, and hands expired
// incidents to the dispatch coordinator exactly once.
package trigger
