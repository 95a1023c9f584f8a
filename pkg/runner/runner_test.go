package runner

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xqtimeline/pkg/accounts"
	"xqtimeline/pkg/browser"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
	"xqtimeline/pkg/pacer"
	"xqtimeline/pkg/timeline"
	"xqtimeline/pkg/xueqiu"
)

// fakeFetcher returns canned statuses or errors per account id
type fakeFetcher struct {
	statuses map[int64][]string
	errs     map[int64]error
	calls    []int64
}

func (f *fakeFetcher) FetchUserTimeline(ctx context.Context, userID int64, timestamp, md5 string) (*xueqiu.TimelineResponse, error) {
	f.calls = append(f.calls, userID)
	if err, ok := f.errs[userID]; ok {
		return nil, err
	}
	resp := &xueqiu.TimelineResponse{Statuses: []timeline.Entry{}}
	for _, raw := range f.statuses[userID] {
		resp.Statuses = append(resp.Statuses, timeline.MustEntry(raw))
	}
	return resp, nil
}

// countingPacer records waits and can fail on a given call
type countingPacer struct {
	waits  int
	failAt int
}

func (p *countingPacer) Wait(ctx context.Context) (time.Duration, error) {
	p.waits++
	if p.failAt > 0 && p.waits == p.failAt {
		return 0, context.Canceled
	}
	return time.Millisecond, nil
}

func newStore(t *testing.T) *timeline.Store {
	t.Helper()
	store, err := timeline.NewStore(t.TempDir(), timeline.WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	return store
}

func account(id int64) accounts.Account {
	return accounts.Account{ID: id, Timestamp: "1700000000000", MD5: "sig"}
}

func texts(t *testing.T, store *timeline.Store, id int64) map[int64]string {
	t.Helper()
	loaded, err := store.Load(id)
	require.NoError(t, err)
	out := map[int64]string{}
	for _, e := range loaded {
		out[e.ID] = e.Get("text").String()
	}
	return out
}

func TestRunMergesAndSaves(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(1, []timeline.Entry{
		timeline.MustEntry(`{"id":1,"text":"a"}`),
		timeline.MustEntry(`{"id":2,"text":"b"}`),
	}))

	fetcher := &fakeFetcher{statuses: map[int64][]string{
		1: {`{"id":2,"text":"b-updated"}`, `{"id":3,"text":"c"}`},
		2: {`{"id":10,"text":"x"}`},
	}}
	p := &countingPacer{}
	r := New(fetcher, store, Options{FailFast: true, Pacer: p, Logger: logger.NewNopLogger()})

	report, err := r.Run(context.Background(), []accounts.Account{account(1), account(2)})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, map[int64]string{1: "a", 2: "b-updated", 3: "c"}, texts(t, store, 1))
	assert.Equal(t, map[int64]string{10: "x"}, texts(t, store, 2))

	assert.Equal(t, 2, p.waits, "one wait before every account")
	assert.Equal(t, []int64{1, 2}, fetcher.calls)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, Outcome{AccountID: 1, Label: "1", Fetched: 2, Stored: 3, Added: 1, Duration: report.Outcomes[0].Duration}, report.Outcomes[0])
	assert.Equal(t, 2, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	store := newStore(t)

	nav := navigatorFunc(func(ctx context.Context, url string) (*browser.Response, error) {
		return &browser.Response{URL: url, Status: 200, Body: []byte("<html>captcha</html>")}, nil
	})
	client := xueqiu.NewClient(nav, logger.NewNopLogger())
	r := New(client, store, Options{FailFast: true, Pacer: pacer.None{}, Logger: logger.NewNopLogger()})

	acct := account(77)
	report, err := r.Run(context.Background(), []accounts.Account{acct})
	require.Error(t, err)

	assert.Contains(t, err.Error(), xueqiu.UserTimelineURL(xueqiu.BaseURL, 77, "1700000000000", "sig"))
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
	_, statErr := os.Stat(store.Path(77))
	assert.True(t, os.IsNotExist(statErr), "no file is written for a failed fetch")
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].OK())
}

func TestRunFetchFailureKeepsExistingFile(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(5, []timeline.Entry{timeline.MustEntry(`{"id":1,"text":"keep"}`)}))
	before, err := os.ReadFile(store.Path(5))
	require.NoError(t, err)

	fetcher := &fakeFetcher{errs: map[int64]error{5: fmt.Errorf("boom")}}
	r := New(fetcher, store, Options{FailFast: true, Pacer: pacer.None{}, Logger: logger.NewNopLogger()})

	_, err = r.Run(context.Background(), []accounts.Account{account(5)})
	require.Error(t, err)

	after, err := os.ReadFile(store.Path(5))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunFailFastStopsAtFirstFailure(t *testing.T) {
	store := newStore(t)
	fetcher := &fakeFetcher{
		statuses: map[int64][]string{3: {`{"id":1}`}},
		errs:     map[int64]error{2: fmt.Errorf("boom")},
	}
	var hooked []int64
	r := New(fetcher, store, Options{
		FailFast: true,
		Pacer:    pacer.None{},
		Logger:   logger.NewNopLogger(),
		OnFailure: func(ctx context.Context, a accounts.Account, err error) {
			hooked = append(hooked, a.ID)
		},
	})

	report, err := r.Run(context.Background(), []accounts.Account{account(1), account(2), account(3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, []int64{1, 2}, fetcher.calls)
	assert.Equal(t, []int64{2}, hooked)
	assert.Len(t, report.Outcomes, 2)
	_, statErr := os.Stat(store.Path(3))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunContinuesWithoutFailFast(t *testing.T) {
	store := newStore(t)
	fetcher := &fakeFetcher{
		statuses: map[int64][]string{1: {`{"id":1}`}, 3: {`{"id":3}`}},
		errs:     map[int64]error{2: fmt.Errorf("boom")},
	}
	r := New(fetcher, store, Options{FailFast: false, Pacer: pacer.None{}, Logger: logger.NewNopLogger()})

	acct2 := account(2)
	acct2.Name = "second"
	report, err := r.Run(context.Background(), []accounts.Account{account(1), acct2, account(3)})
	require.Error(t, err)

	assert.Equal(t, []int64{1, 2, 3}, fetcher.calls)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Succeeded())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, int64(2), report.Failed()[0].AccountID)
	assert.Contains(t, report.Err().Error(), "account second (2): boom")

	assert.FileExists(t, store.Path(1))
	assert.FileExists(t, store.Path(3))
}

func TestRunStopsWhenPacerIsInterrupted(t *testing.T) {
	store := newStore(t)
	fetcher := &fakeFetcher{statuses: map[int64][]string{1: {`{"id":1}`}}}
	p := &countingPacer{failAt: 2}
	r := New(fetcher, store, Options{FailFast: false, Pacer: p, Logger: logger.NewNopLogger()})

	report, err := r.Run(context.Background(), []accounts.Account{account(1), account(2)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1}, fetcher.calls)
	assert.Len(t, report.Outcomes, 1)
}

func TestRunLogsOutcomes(t *testing.T) {
	store := newStore(t)
	log := logger.NewTestLogger()
	fetcher := &fakeFetcher{statuses: map[int64][]string{1: {`{"id":1}`}}}
	r := New(fetcher, store, Options{Pacer: pacer.None{}, Logger: log})

	_, err := r.Run(context.Background(), []accounts.Account{account(1)})
	require.NoError(t, err)

	assert.True(t, log.HasMessage("Run started"))
	assert.True(t, log.HasMessage("Account timeline saved"))
	assert.True(t, log.HasMessage("Run finished"))
	for _, m := range log.GetMessages() {
		assert.NotEmpty(t, m.Fields["run_id"], m.Message)
	}
}

func TestRunEmptyList(t *testing.T) {
	r := New(&fakeFetcher{}, newStore(t), Options{Pacer: pacer.None{}, Logger: logger.NewNopLogger()})
	report, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
}

type navigatorFunc func(ctx context.Context, url string) (*browser.Response, error)

func (f navigatorFunc) Navigate(ctx context.Context, url string) (*browser.Response, error) {
	return f(ctx, url)
}

func TestRunNoResponseWritesNothing(t *testing.T) {
	store := newStore(t)

	nav := navigatorFunc(func(ctx context.Context, url string) (*browser.Response, error) {
		return nil, nil
	})
	client := xueqiu.NewClient(nav, logger.NewNopLogger())
	r := New(client, store, Options{FailFast: true, Pacer: pacer.None{}, Logger: logger.NewNopLogger()})

	_, err := r.Run(context.Background(), []accounts.Account{account(78)})
	require.Error(t, err)

	assert.True(t, errs.IsType(err, errs.ErrorTypeNoResponse))
	assert.Contains(t, err.Error(), xueqiu.UserTimelineURL(xueqiu.BaseURL, 78, "1700000000000", "sig"))
	_, statErr := os.Stat(store.Path(78))
	assert.True(t, os.IsNotExist(statErr), "no file is written when nothing came back")
}
