// Package pacer spaces out requests to the remote site.
//
// Every account fetch is preceded by a random pause so that a batch does
// not hit the site at a fixed rhythm. The delay is uniform over a closed
// millisecond window, 3 to 10 seconds unless configured otherwise.
//
// Usage:
//
//	p := pacer.New(3*time.Second, 10*time.Second)
//	if _, err := p.Wait(ctx); err != nil {
//	    return err // context cancelled
//	}
package pacer
