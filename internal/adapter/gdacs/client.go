// Package gdacs fetches and parses the two GDACS feed formats: the RSS/XML
// document and the client-rendered GeoJSON event list.
package gdacs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/couchcryptid/disaster-alert-sync/internal/observability"
	"github.com/go-resty/resty/v2"
)

// Browser renders a client-side page and returns its payload. An
// implementation owns the browser session for the duration of one call and
// releases it on every exit path.
type Browser interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// Client fetches raw feed payloads from the GDACS endpoints.
type Client struct {
	http       *resty.Client
	browser    Browser
	geojsonURL string
	xmlURL     string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client. timeout bounds each XML request; the
// browser carries its own bound for the GeoJSON side.
func NewClient(geojsonURL, xmlURL string, timeout time.Duration, browser Browser, logger *slog.Logger, metrics *observability.Metrics) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "application/xml")

	return &Client{
		http:       httpClient,
		browser:    browser,
		geojsonURL: geojsonURL,
		xmlURL:     xmlURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchXML retrieves the RSS document.
func (c *Client) FetchXML(ctx context.Context) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(c.xmlURL)
	c.metrics.FetchDuration.WithLabelValues(domain.SourceXML).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(domain.SourceXML, "error").Inc()
		return nil, &domain.FetchError{Source: domain.SourceXML, Reason: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(domain.SourceXML, "error").Inc()
		return nil, &domain.FetchError{
			Source: domain.SourceXML,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode()),
		}
	}

	c.metrics.FetchRequests.WithLabelValues(domain.SourceXML, "success").Inc()
	c.logger.Debug("xml feed fetched", "bytes", len(resp.Body()), "duration", time.Since(start))
	return resp.Body(), nil
}

// FetchGeoJSON retrieves the GeoJSON event list through the browser, since
// the endpoint renders its payload client-side.
func (c *Client) FetchGeoJSON(ctx context.Context) ([]byte, error) {
	start := time.Now()
	body, err := c.browser.FetchPage(ctx, c.geojsonURL)
	c.metrics.FetchDuration.WithLabelValues(domain.SourceGeoJSON).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(domain.SourceGeoJSON, "error").Inc()
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &domain.FetchError{Source: domain.SourceGeoJSON, Reason: "browser fetch failed", Err: err}
	}

	c.metrics.FetchRequests.WithLabelValues(domain.SourceGeoJSON, "success").Inc()
	c.logger.Debug("geojson feed fetched", "bytes", len(body), "duration", time.Since(start))
	return body, nil
}
