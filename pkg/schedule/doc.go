// Package schedule keeps the fetcher running as a long-lived process.
//
// Watch evaluates a cron expression with gocron and runs the batch on every
// tick, one run at a time. It returns when its context ends or the process
// receives SIGINT or SIGTERM; the signal handler and the scheduler are tied
// together with an oklog/run group so either one stops the other.
package schedule
