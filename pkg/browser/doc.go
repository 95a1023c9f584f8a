// Package browser drives a headless Chrome session over the DevTools
// protocol.
//
// A Session owns one Chrome process and one tab. Opening it launches the
// browser without the sandbox, optionally routes traffic through a proxy
// (answering the proxy's auth challenges with the credentials embedded in
// the proxy URL), blocks image requests and visits the site's home page once
// so the cookies the JSON endpoints expect are set.
//
// Navigate returns the status and body of the document the tab ended up on,
// which is how JSON endpoints are read: the browser carries the cookies and
// fingerprint the site checks.
package browser
