// Package operations orchestrates the pipeline as an ordered sequence of
// steps, each with its own lifecycle state, tracing span and run-scoped
// logging. Steps hand intermediate artifacts to each other through the
// shared run state; a failed step fails the run, a skipped step records why.
package operations
