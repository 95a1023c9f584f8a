package xueqiu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"xqtimeline/pkg/browser"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
)

// PreviewLength is how many characters of each response body are logged
const PreviewLength = 100

// Navigator loads a URL in the browser and returns the document response
type Navigator interface {
	Navigate(ctx context.Context, url string) (*browser.Response, error)
}

// Client reads the site's JSON endpoints through a browser tab
type Client struct {
	nav     Navigator
	baseURL string
	logger  logger.Logger
}

// NewClient creates a client on top of nav
func NewClient(nav Navigator, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		nav:     nav,
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetBaseURL points the client at another host, used for mirrors and tests
func (c *Client) SetBaseURL(base string) {
	c.baseURL = trimBase(base)
}

// BaseURL returns the host the endpoints are built on
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON navigates to url and decodes the body into target
func (c *Client) FetchJSON(ctx context.Context, url string, target interface{}) error {
	c.logger.InfoWithFields("Fetching URL", map[string]interface{}{
		"url": url,
	})

	start := time.Now()
	resp, err := c.nav.Navigate(ctx, url)
	if err != nil {
		c.logger.ErrorWithFields("Fetch failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return err
	}
	if resp == nil {
		c.logger.ErrorWithFields("No response received", map[string]interface{}{
			"url": url,
		})
		return errs.WrapURL(fmt.Errorf("navigator returned no response"), errs.ErrorTypeNoResponse, "fetch json", url)
	}

	c.logger.DebugWithFields("Response received", map[string]interface{}{
		"url":      url,
		"status":   resp.Status,
		"bytes":    len(resp.Body),
		"duration": time.Since(start),
		"preview":  preview(resp.Body, PreviewLength),
	})

	if apiErr := apiError(resp.Body); apiErr != nil {
		return errs.WrapURL(apiErr, errs.ErrorTypeNavigation, "fetch json", url)
	}
	if resp.Status >= 400 {
		return errs.WrapURL(fmt.Errorf("unexpected status %d", resp.Status), errs.ErrorTypeNavigation, "fetch json", url)
	}

	if err := json.Unmarshal(resp.Body, target); err != nil {
		c.logger.ErrorWithFields("Failed to parse JSON response", map[string]interface{}{
			"url":     url,
			"error":   err.Error(),
			"preview": preview(resp.Body, PreviewLength),
		})
		return errs.WrapURL(err, errs.ErrorTypeParsing, "decode response", url)
	}
	return nil
}

// SearchUser looks up users matching query
func (c *Client) SearchUser(ctx context.Context, query string) (*SearchUserResponse, error) {
	url := SearchUserURL(c.baseURL, query)

	var response SearchUserResponse
	if err := c.FetchJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("User search completed", map[string]interface{}{
		"query": query,
		"hits":  len(response.List),
	})
	return &response, nil
}

// FetchUserTimeline fetches the first timeline page of userID. Every status
// must be an object with an integer id.
func (c *Client) FetchUserTimeline(ctx context.Context, userID int64, timestamp, md5 string) (*TimelineResponse, error) {
	url := UserTimelineURL(c.baseURL, userID, timestamp, md5)

	var raw json.RawMessage
	if err := c.FetchJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	if statuses := gjson.GetBytes(raw, "statuses"); !statuses.IsArray() {
		return nil, errs.WrapURL(fmt.Errorf("response has no statuses array"), errs.ErrorTypeParsing, "decode timeline", url)
	}

	var response TimelineResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, errs.WrapURL(err, errs.ErrorTypeParsing, "decode timeline", url)
	}

	c.logger.DebugWithFields("Timeline fetched", map[string]interface{}{
		"account_id": userID,
		"statuses":   len(response.Statuses),
		"total":      response.Total,
	})
	return &response, nil
}

// apiError recognises the site's refusal body
func apiError(body []byte) *APIError {
	if !gjson.ValidBytes(body) {
		return nil
	}
	doc := gjson.ParseBytes(body)
	code := doc.Get("error_code")
	if !doc.IsObject() || !code.Exists() {
		return nil
	}
	return &APIError{
		Code:        code.String(),
		Description: doc.Get("error_description").String(),
		URI:         doc.Get("error_uri").String(),
	}
}

// preview returns the first n characters of body, marking truncation
func preview(body []byte, n int) string {
	if utf8.RuneCount(body) <= n {
		return string(body)
	}
	i, count := 0, 0
	for i < len(body) && count < n {
		_, size := utf8.DecodeRune(body[i:])
		i += size
		count++
	}
	return string(body[:i]) + "..."
}
