package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"steam-market-harvester/internal/config"
	"steam-market-harvester/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the cookie that carries the session credential on
// price history requests.
const SessionCookie = "steamLoginSecure"

// TransportError is a failed round trip: either the request never got a
// response or the response status was not 2xx.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("status code for %s was %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the community market endpoints and returns raw payloads.
type Client struct {
	client      *resty.Client
	searchURL   string
	listingsURL string
	historyURL  string
	log         *logrus.Entry
}

func NewClient(cfg config.SteamConfig, log logrus.FieldLogger) *Client {
	client := resty.New()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.ProxyURL != "" {
		client.SetProxy(cfg.ProxyURL)
	}

	return &Client{
		client:      client,
		searchURL:   cfg.SearchURL,
		listingsURL: strings.TrimRight(cfg.ListingsURL, "/"),
		historyURL:  cfg.HistoryURL,
		log:         logger.Component(log, "steam"),
	}
}

// SearchItems fetches one page of the catalog for gameID starting at start.
func (c *Client) SearchItems(ctx context.Context, gameID, start, count int) ([]byte, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":               "appid:" + strconv.Itoa(gameID),
			"count":               strconv.Itoa(count),
			"search_descriptions": "1",
			"norender":            "1",
			"start":               strconv.Itoa(start),
		})
	return c.do(req, c.searchURL)
}

// ListingURL builds the listing page address for an item.
func (c *Client) ListingURL(gameID int, hashName string) string {
	return fmt.Sprintf("%s/%d/%s", c.listingsURL, gameID, url.PathEscape(hashName))
}

// FetchListingPage returns the HTML of an item's listing page.
func (c *Client) FetchListingPage(ctx context.Context, gameID int, hashName string) ([]byte, error) {
	return c.do(c.client.R().SetContext(ctx), c.ListingURL(gameID, hashName))
}

// FetchPriceHistory returns the price history payload for an item. The
// credential is sent as the session cookie without interpretation.
func (c *Client) FetchPriceHistory(ctx context.Context, gameID int, hashName string, currency int, credential string) ([]byte, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"currency":         strconv.Itoa(currency),
			"appid":            strconv.Itoa(gameID),
			"market_hash_name": hashName,
		}).
		SetCookie(&http.Cookie{Name: SessionCookie, Value: credential})
	return c.do(req, c.historyURL)
}

func (c *Client) do(req *resty.Request, target string) ([]byte, error) {
	resp, err := req.Get(target)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	c.log.WithFields(logrus.Fields{
		"url":    resp.Request.URL,
		"status": resp.StatusCode(),
		"took":   resp.Time(),
	}).Debug("Requested")

	if !resp.IsSuccess() {
		return nil, &TransportError{URL: resp.Request.URL, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}
