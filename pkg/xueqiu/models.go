package xueqiu

import "xqtimeline/pkg/timeline"

// User is one search hit. Fields not listed are ignored.
type User struct {
	ID             int64  `json:"id"`
	ScreenName     string `json:"screen_name"`
	Description    string `json:"description"`
	FollowersCount int64  `json:"followers_count"`
	StatusCount    int64  `json:"status_count"`
}

// SearchUserResponse is the payload of the user search endpoint
type SearchUserResponse struct {
	Count   int    `json:"count"`
	Page    int    `json:"page"`
	MaxPage int    `json:"maxPage"`
	List    []User `json:"list"`
}

// TimelineResponse is the payload of the user timeline endpoint. Statuses
// are kept as opaque entries keyed by id.
type TimelineResponse struct {
	Count    int              `json:"count"`
	Page     int              `json:"page"`
	MaxPage  int              `json:"maxPage"`
	Statuses []timeline.Entry `json:"statuses"`
	Total    int              `json:"total"`
}

// APIError is the body the site returns when it refuses a request
type APIError struct {
	Code        string `json:"error_code"`
	Description string `json:"error_description"`
	URI         string `json:"error_uri"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return "api error " + e.Code
	}
	return "api error " + e.Code + ": " + e.Description
}
