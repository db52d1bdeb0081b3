// Package flow runs the criticat review pipeline.
//
// A run moves through start, extracting, reviewing and then either
// notifying or done. [Next] and [ShouldNotify] decide the transitions from
// the state alone; the stage bodies on [Orchestrator] perform the I/O.
//
// Extraction failure aborts the run. A provider whose review fails is left
// out of the feedback. Joke and notification failures are logged and the
// run still succeeds.
package flow
