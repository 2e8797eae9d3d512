// Package organizer finalizes half-tomogram output layout.
//
// After a run finishes its per-dataset stages, the organizer gathers the
// rotated evens/odds volumes into a halfsets directory inside each dataset
// and mirrors those directories into the configured archive. Archive sync is
// deliberately best effort: a missing destination or a failed transfer is
// logged and skipped so one bad mount never blocks the rest of the batch.
package organizer
