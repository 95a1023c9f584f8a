// Package xueqiu reads Xueqiu's JSON endpoints through a browser session.
//
// The site only answers API calls that carry the cookies set by a prior visit
// to its home page, so requests go through a Navigator (normally a
// *browser.Session) rather than a plain HTTP client. Bodies are decoded with
// encoding/json; timeline statuses are kept as opaque entries so fields the
// site adds later survive a round trip to disk.
//
// Usage:
//
//	client := xueqiu.NewClient(session, log)
//	resp, err := client.FetchUserTimeline(ctx, account.ID, account.Timestamp.String(), account.MD5)
package xueqiu
