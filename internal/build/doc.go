// Package build runs a whole build as a graph of tasks.
//
// Every project contributes a base compile task, one compile task per
// higher-baseline layer, a descriptor compile task when it has a module
// descriptor, and an assemble task. A single docs task follows every
// assemble. Tasks start as soon as their prerequisites succeeded and run
// concurrently up to the configured limit. A failed task blocks everything
// downstream of it while unrelated tasks keep going.
//
// All compiler invocations are composed before the first task starts, so a
// configuration problem never leaves a half-finished build behind.
package build
