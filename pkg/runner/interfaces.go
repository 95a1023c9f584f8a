package runner

import (
	"context"

	"xqtimeline/pkg/timeline"
	"xqtimeline/pkg/xueqiu"
)

// TimelineFetcher retrieves the latest timeline page of an account
type TimelineFetcher interface {
	FetchUserTimeline(ctx context.Context, userID int64, timestamp, md5 string) (*xueqiu.TimelineResponse, error)
}

// TimelineStore loads, merges and persists per-account collections
type TimelineStore interface {
	Load(userID int64) ([]timeline.Entry, error)
	Merge(existing, incoming []timeline.Entry) []timeline.Entry
	Save(userID int64, entries []timeline.Entry) error
}
