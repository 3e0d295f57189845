package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Checker periodically probes every synonym source URL and records its
// availability in the SourceDB.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// CheckReport counts the outcome of one CheckAll pass.
type CheckReport struct {
	OK     int
	Failed int
}

// NewChecker creates a Checker that verifies source URLs every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every source URL and persists the result. 2xx and 3xx
// statuses count as available.
func (c *Checker) CheckAll(ctx context.Context) CheckReport {
	var report CheckReport
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return report
	}
	if len(sources) == 0 {
		return report
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return report
		}

		status, checkErr := c.checkOne(ctx, src.SourceURL)
		errMsg := ""
		if checkErr != nil {
			errMsg = checkErr.Error()
		}

		if err := c.sources.UpdateCheck(src.AdapterID, status, errMsg); err != nil {
			c.logger.Error("source check: record result", "adapter", src.AdapterID, "error", err)
		}

		if status >= 200 && status < 400 {
			report.OK++
			continue
		}
		report.Failed++
		c.logger.Warn("source unavailable",
			"adapter", src.AdapterID,
			"url", src.SourceURL,
			"status", status,
			"error", errMsg,
		)
	}

	c.logger.Info("source check complete", "total", report.OK+report.Failed, "ok", report.OK, "failed", report.Failed)
	return report
}

// checkOne sends a HEAD request and returns the HTTP status code. Servers
// that refuse HEAD are asked for the first byte with GET. On network error
// the status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	status, err := c.probe(ctx, http.MethodHead, url)
	if err != nil || status != http.StatusMethodNotAllowed {
		return status, err
	}
	return c.probe(ctx, http.MethodGet, url)
}

func (c *Checker) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
