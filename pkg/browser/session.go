package browser

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
)

const DefaultHomeURL = "https://xueqiu.com/"

// ErrClosed is returned by calls on a closed session
var ErrClosed = errors.New("browser session is closed")

var errNoResponse = errors.New("navigation produced no response")

// Options configures a browser session
type Options struct {
	ProxyURL          string
	HomeURL           string
	ExecPath          string
	UserAgent         string
	Headless          bool
	BlockImages       bool
	ViewportWidth     int64
	ViewportHeight    int64
	NavigationTimeout time.Duration
	Logger            logger.Logger
}

// DefaultOptions returns headless options with images blocked
func DefaultOptions() Options {
	return Options{
		HomeURL:        DefaultHomeURL,
		Headless:       true,
		BlockImages:    true,
		ViewportWidth:  1080,
		ViewportHeight: 1024,
	}
}

// Response is the outcome of a page navigation
type Response struct {
	URL      string
	Status   int64
	MimeType string
	Body     []byte
}

// Session is one Chrome process with a single tab. It is driven from one
// goroutine at a time.
type Session struct {
	opts   Options
	proxy  *Proxy
	logger logger.Logger

	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu      sync.Mutex
	docs    map[string]network.RequestID
	lastDoc network.RequestID
	closed  bool
}

// Open launches Chrome, installs request interception and proxy auth, and
// warms up on the home page. On failure everything acquired is released.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.HomeURL == "" {
		opts.HomeURL = DefaultHomeURL
	}
	if opts.ViewportWidth == 0 || opts.ViewportHeight == 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1080, 1024
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	s := &Session{
		opts:   opts,
		logger: opts.Logger,
		docs:   make(map[string]network.RequestID),
	}

	if opts.ProxyURL != "" {
		proxy, err := ParseProxy(opts.ProxyURL)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeSession, "open browser")
		}
		s.proxy = proxy
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	s.ctx, s.cancelTab, s.cancelAlloc = tabCtx, cancelTab, cancelAlloc

	start := time.Now()
	logger.LogComponentStart(s.logger, "browser", map[string]interface{}{
		"proxy":        s.proxy.String(),
		"block_images": opts.BlockImages,
		"headless":     opts.Headless,
	})

	chromedp.ListenTarget(tabCtx, s.handleEvent)

	if err := chromedp.Run(tabCtx, s.setupActions()...); err != nil {
		s.Close()
		return nil, errs.Wrap(err, errs.ErrorTypeSession, "start browser")
	}

	if _, err := s.Navigate(ctx, opts.HomeURL); err != nil {
		s.Close()
		return nil, errs.Wrap(err, errs.ErrorTypeSession, "warm up")
	}

	s.logger.InfoWithFields("Browser session ready", map[string]interface{}{
		"home_url": opts.HomeURL,
		"duration": time.Since(start),
	})
	return s, nil
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if !s.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if s.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ExecPath))
	}
	if s.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.opts.UserAgent))
	}
	if s.proxy != nil {
		opts = append(opts, chromedp.ProxyServer(s.proxy.Server))
	}
	return opts
}

func (s *Session) setupActions() []chromedp.Action {
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.EmulateViewport(s.opts.ViewportWidth, s.opts.ViewportHeight),
	}
	if s.intercepts() {
		actions = append(actions, fetch.Enable().
			WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}).
			WithHandleAuthRequests(s.proxy.HasAuth()))
	}
	return actions
}

func (s *Session) intercepts() bool {
	return s.opts.BlockImages || s.proxy.HasAuth()
}

// handleEvent runs on the chromedp event loop. CDP commands issued from here
// would deadlock, so replies go through a goroutine.
func (s *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		s.mu.Lock()
		s.docs[e.Response.URL] = e.RequestID
		s.lastDoc = e.RequestID
		s.mu.Unlock()

	case *fetch.EventRequestPaused:
		go s.reply(func(ctx context.Context) error {
			if s.opts.BlockImages && e.ResourceType == network.ResourceTypeImage {
				return fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
			}
			return fetch.ContinueRequest(e.RequestID).Do(ctx)
		})

	case *fetch.EventAuthRequired:
		go s.reply(func(ctx context.Context) error {
			resp := &fetch.AuthChallengeResponse{
				Response: fetch.AuthChallengeResponseResponseProvideCredentials,
				Username: s.proxy.Username,
				Password: s.proxy.Password,
			}
			if !s.proxy.HasAuth() {
				resp = &fetch.AuthChallengeResponse{Response: fetch.AuthChallengeResponseResponseCancelAuth}
			}
			return fetch.ContinueWithAuth(e.RequestID, resp).Do(ctx)
		})
	}
}

func (s *Session) reply(fn func(context.Context) error) {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return
	}
	if err := fn(cdp.WithExecutor(s.ctx, c.Target)); err != nil && s.ctx.Err() == nil {
		s.logger.DebugWithFields("Interception reply failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// runContext derives a context for one chromedp call that ends when either
// the session or ctx is done.
func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.opts.NavigationTimeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, s.opts.NavigationTimeout)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads url in the tab and returns the document response with its
// body.
func (s *Session) Navigate(ctx context.Context, url string) (*Response, error) {
	if s.isClosed() {
		return nil, errs.WrapURL(ErrClosed, errs.ErrorTypeSession, "navigate", url)
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, errs.WrapURL(err, errs.ErrorTypeNavigation, "navigate", url)
	}
	if resp == nil {
		return nil, errs.WrapURL(errNoResponse, errs.ErrorTypeNoResponse, "navigate", url)
	}
	logger.LogNavigation(s.logger, url, resp.Status, time.Since(start))

	id := s.documentID(resp.URL)
	var body []byte
	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, errs.WrapURL(err, errs.ErrorTypeNoResponse, "read response body", url)
	}

	return &Response{
		URL:      resp.URL,
		Status:   resp.Status,
		MimeType: resp.MimeType,
		Body:     body,
	}, nil
}

func (s *Session) documentID(url string) network.RequestID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.docs[url]; ok {
		return id
	}
	return s.lastDoc
}

// Screenshot writes a full page PNG of the current page to path
func (s *Session) Screenshot(ctx context.Context, path string) error {
	if s.isClosed() {
		return errs.Wrap(ErrClosed, errs.ErrorTypeSession, "screenshot")
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return errs.Wrap(err, errs.ErrorTypeSession, "screenshot")
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return errs.WrapPath(err, errs.ErrorTypeStorage, "screenshot", path)
	}
	return nil
}

// Close shuts the tab and the browser process. Calling it again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.ctx != nil {
		err = chromedp.Cancel(s.ctx)
	}
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}

	logger.LogComponentStop(s.logger, "browser", "closed")
	if err != nil && !errors.Is(err, context.Canceled) {
		return errs.Wrap(err, errs.ErrorTypeSession, "close browser")
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
