package searchinterest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	collyfetcher "github.com/JakeFAU/bag-trend-collector/internal/fetcher/colly"
)

const (
	explorePath   = "/trends/api/explore"
	multilinePath = "/trends/api/widgetdata/multiline"
	timeseriesID  = "TIMESERIES"
	dateLayout    = "2006-01-02"
)

// Fetcher issues HTTP GETs.
type Fetcher interface {
	Fetch(ctx context.Context, req collyfetcher.Request) (collyfetcher.Response, error)
}

// Window is an inclusive calendar-day range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return w.Start.Format(dateLayout) + " " + w.End.Format(dateLayout)
}

// ClientConfig configures TrendsClient.
type ClientConfig struct {
	BaseURL string
	HL      string
	TZ      int
	Geo     string
}

// TrendsClient talks to the Google Trends JSON endpoints. One call to
// InterestOverTime performs the explore handshake followed by the
// multiline data fetch.
type TrendsClient struct {
	fetcher Fetcher
	cfg     ClientConfig
	logger  *zap.Logger

	warmOnce sync.Once
}

// NewTrendsClient builds a client over fetcher.
func NewTrendsClient(fetcher Fetcher, cfg ClientConfig, logger *zap.Logger) *TrendsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HL == "" {
		cfg.HL = "en-US"
	}
	return &TrendsClient{fetcher: fetcher, cfg: cfg, logger: logger}
}

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type timelinePoint struct {
	Time  string `json:"time"`
	Value []int  `json:"value"`
}

type multilineResponse struct {
	Default struct {
		TimelineData []timelinePoint `json:"timelineData"`
	} `json:"default"`
}

// InterestOverTime returns daily interest for every keyword over window.
func (c *TrendsClient) InterestOverTime(ctx context.Context, keywords []string, window Window) ([]collector.InterestSample, error) {
	if len(keywords) == 0 {
		return nil, collector.ErrNoRows
	}
	c.warmOnce.Do(func() { c.warmUp(ctx) })

	w, err := c.explore(ctx, keywords, window)
	if err != nil {
		return nil, err
	}
	body, err := c.multiline(ctx, w)
	if err != nil {
		return nil, err
	}
	return parseTimeline(body, keywords)
}

// warmUp picks up the session cookies the API endpoints expect. Failures are
// not fatal; the explore call reports the real problem.
func (c *TrendsClient) warmUp(ctx context.Context) {
	geo := c.cfg.Geo
	if geo == "" {
		geo = "US"
	}
	_, err := c.fetcher.Fetch(ctx, collyfetcher.Request{URL: c.cfg.BaseURL + "/?geo=" + url.QueryEscape(geo)})
	if err != nil {
		c.logger.Debug("trends cookie warm-up failed", zap.Error(err))
	}
}

func (c *TrendsClient) explore(ctx context.Context, keywords []string, window Window) (widget, error) {
	items := make([]comparisonItem, 0, len(keywords))
	for _, kw := range keywords {
		items = append(items, comparisonItem{Keyword: kw, Geo: c.cfg.Geo, Time: window.String()})
	}
	req, err := json.Marshal(exploreRequest{ComparisonItem: items})
	if err != nil {
		return widget{}, fmt.Errorf("encode explore request: %w", err)
	}

	params := c.baseParams()
	params.Set("req", string(req))
	resp, err := c.fetcher.Fetch(ctx, collyfetcher.Request{URL: c.cfg.BaseURL + explorePath + "?" + params.Encode()})
	if err != nil {
		return widget{}, fmt.Errorf("trends explore: %w", err)
	}

	var parsed exploreResponse
	if err := json.Unmarshal(stripPrefix(resp.Body), &parsed); err != nil {
		return widget{}, fmt.Errorf("decode explore response: %w", err)
	}
	for _, w := range parsed.Widgets {
		if w.ID == timeseriesID && w.Token != "" {
			return w, nil
		}
	}
	return widget{}, errors.New("trends explore: no TIMESERIES widget in response")
}

func (c *TrendsClient) multiline(ctx context.Context, w widget) ([]byte, error) {
	params := c.baseParams()
	params.Set("req", string(w.Request))
	params.Set("token", w.Token)
	resp, err := c.fetcher.Fetch(ctx, collyfetcher.Request{URL: c.cfg.BaseURL + multilinePath + "?" + params.Encode()})
	if err != nil {
		return nil, fmt.Errorf("trends multiline: %w", err)
	}
	return resp.Body, nil
}

func (c *TrendsClient) baseParams() url.Values {
	params := url.Values{}
	params.Set("hl", c.cfg.HL)
	params.Set("tz", strconv.Itoa(c.cfg.TZ))
	return params
}

func parseTimeline(body []byte, keywords []string) ([]collector.InterestSample, error) {
	var parsed multilineResponse
	if err := json.Unmarshal(stripPrefix(body), &parsed); err != nil {
		return nil, fmt.Errorf("decode multiline response: %w", err)
	}
	points := parsed.Default.TimelineData
	if len(points) == 0 {
		return nil, collector.ErrNoRows
	}

	out := make([]collector.InterestSample, 0, len(points)*len(keywords))
	for _, p := range points {
		secs, err := strconv.ParseInt(p.Time, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timeline time %q: %w", p.Time, err)
		}
		if len(p.Value) != len(keywords) {
			return nil, fmt.Errorf("timeline point has %d values for %d keywords", len(p.Value), len(keywords))
		}
		day := truncateDay(time.Unix(secs, 0))
		for i, kw := range keywords {
			out = append(out, collector.InterestSample{Date: day, Keyword: kw, Interest: clamp(p.Value[i])})
		}
	}
	return out, nil
}

// stripPrefix removes the anti-hijacking guard Google prepends to JSON.
func stripPrefix(body []byte) []byte {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte(")]}'"))
	body = bytes.TrimPrefix(body, []byte(","))
	return bytes.TrimSpace(body)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
