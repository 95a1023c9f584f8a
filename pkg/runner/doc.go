// Package runner drives one batch over the account list.
//
// Accounts are handled strictly in file order by a single goroutine. Before
// each account the runner waits a random delay, then fetches the latest
// timeline page, loads the stored collection, merges the two and writes the
// result back. A failed fetch never touches the stored file.
//
// With FailFast set the first failure ends the batch. Without it every
// account is attempted and the Report lists what happened to each one.
package runner
