package xueqiu

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the site root all endpoints hang off
	BaseURL = "https://xueqiu.com"

	// SearchUserEndpoint looks up users by name
	SearchUserEndpoint = "/query/v1/search/user.json"

	// UserTimelineEndpoint lists a user's latest posts
	UserTimelineEndpoint = "/v4/statuses/user_timeline.json"

	// SignatureParam carries the per-account signature token. The endpoint
	// rejects it if it is percent-encoded.
	SignatureParam = "md5__1038"
)

// SearchUserURL builds the user search URL for query
func SearchUserURL(base, query string) string {
	return fmt.Sprintf("%s%s?q=%s", trimBase(base), SearchUserEndpoint, escapeComponent(query))
}

// UserTimelineURL builds the first-page timeline URL of userID. The query
// keeps the page, user_id, _ order and the signature is appended verbatim.
func UserTimelineURL(base string, userID int64, timestamp, md5 string) string {
	query := strings.Join([]string{
		"page=1",
		"user_id=" + strconv.FormatInt(userID, 10),
		"_=" + url.QueryEscape(timestamp),
	}, "&")

	return fmt.Sprintf("%s%s?%s&%s=%s", trimBase(base), UserTimelineEndpoint, query, SignatureParam, md5)
}

// ProfileURL is the public page of a user
func ProfileURL(base string, userID int64) string {
	return fmt.Sprintf("%s/u/%d", trimBase(base), userID)
}

func trimBase(base string) string {
	if base == "" {
		return BaseURL
	}
	return strings.TrimRight(base, "/")
}

// escapeComponent percent-encodes s for use inside a query value, spaces
// included.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
