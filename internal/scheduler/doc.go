// Package scheduler decides which stages of an execution graph are ready to
// run.
//
// The scheduler keeps one atomic counter of unmet dependencies per stage.
// Sources start at zero and are ready immediately. Each time a stage
// succeeds, its dependents' counters are decremented and any that reach zero
// become ready. A stage that failed or was skipped never releases its
// dependents, so nothing downstream of a failure can start.
//
// The scheduler only answers "what can run next"; running it is the
// executor's job.
package scheduler
