package runner

import (
	"fmt"
	"time"

	errs "xqtimeline/pkg/errors"
)

// Outcome is the result of processing one account
type Outcome struct {
	AccountID int64
	Label     string
	// Fetched is the number of statuses returned by the site
	Fetched int
	// Stored is the size of the collection written to disk
	Stored int
	// Added counts ids that were not stored before this run
	Added    int
	Err      error
	Duration time.Duration
}

// OK reports whether the account was saved
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report lists the outcome of every account a run got to, in file order
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Succeeded returns how many accounts were saved
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins the errors of every failed account, nil if all succeeded
func (r *Report) Err() error {
	var all []error
	for _, o := range r.Failed() {
		all = append(all, fmt.Errorf("account %s: %w", o.Label, o.Err))
	}
	return errs.Join(all...)
}
