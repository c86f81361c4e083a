package livedemo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	Lo "github.com/maroda/livedemo/obvy"
	Lp "github.com/maroda/livedemo/plugin"
	Lt "github.com/maroda/livedemo/types"
)

const (
	webTimeout = 10 * time.Second
)

type HTTPClient interface {
	Get(string) (*http.Response, error)
}

// Shared HTTP Client
var sharedHTTPClient = &http.Client{
	Timeout: webTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	},
}

// SingleFetchWithClient handles the messy business of the HTTP connection
// and is testable with dependency injection, called by SingleFetch
func SingleFetchWithClient(url string, c HTTPClient) (int, []byte, error) {
	resp, err := c.Get(url)
	if err != nil {
		slog.Error("Fetch Error", slog.Any("Error", err))
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Close Error", slog.Any("Error", err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Could not read body", slog.Any("Error", err))
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// SingleFetch returns the Response Code, raw byte stream body, and error
// This uses a Shared HTTP Client to reuse existing endpoint connections
func SingleFetch(url string) (int, []byte, error) {
	return SingleFetchWithClient(url, sharedHTTPClient)
}

// MetricKV fetches the endpoint body and populates
// a map for all key/values, removing whitespace and comments
func MetricKV(d, url string) (map[string]string, error) {
	_, body, err := SingleFetch(url)
	if err != nil {
		return nil, err
	}
	return ParseMetricKV(bytes.NewReader(body), d)
}

func ParseMetricKV(reader io.Reader, d string) (map[string]string, error) {
	envMap := make(map[string]string)
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// ignore whitespace and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on the delimiter /d/
		parts := strings.SplitN(line, d, 2)
		if len(parts) != 2 {
			slog.Error("WARNING: Invalid line", slog.String("line", line))
			continue
		}

		// Extract Key, Clean up Value, Add to Map
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		// Take care of any trailing quotes and comments
		if pos := strings.IndexAny(value, `"'#`); pos != -1 {
			value = value[:pos]
		}
		envMap[key] = value
	}

	if err := scanner.Err(); err != nil {
		slog.Error("Problem scanning input", slog.Any("Error", err))
		return nil, fmt.Errorf("scanning error: %w", err)
	}

	return envMap, nil
}

// PollSource turns a remote KV or JSON endpoint into a sample stream,
// one sample per Interval, run through a ValueTransformer
type PollSource struct {
	URL       string
	Metric    string
	Delim     string
	Interval  time.Duration
	Transform Lp.ValueTransformer
	Stats     *Lo.StatsInternal
}

// NewPollSource builds the poll source from config
func NewPollSource(c *Config) (*PollSource, error) {
	if c.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: pollInterval must be positive, got %d", ErrConfigInvalid, c.PollInterval)
	}
	tf, err := Lp.TransformerLookup(c.PollTransform, c.PollMetric)
	if err != nil {
		return nil, err
	}
	return &PollSource{
		URL:       c.PollURL,
		Metric:    c.PollMetric,
		Delim:     c.PollDelim,
		Interval:  c.PollDuration(),
		Transform: tf,
	}, nil
}

func (p *PollSource) Name() string { return "poll:" + p.Transform.Type() }

// PollOnce fetches the endpoint and returns the transformed sample.
// A transformer that needs the whole body (json_key) gets it unparsed.
func (p *PollSource) PollOnce(now time.Time) (float64, error) {
	start := time.Now()
	defer func() {
		if p.Stats != nil {
			p.Stats.RecPollTimer(time.Since(start).Seconds())
		}
	}()

	var raw string
	if p.Transform.WholeBody() {
		_, body, err := SingleFetch(p.URL)
		if err != nil {
			return 0, err
		}
		raw = string(body)
	} else {
		kv, err := MetricKV(p.Delim, p.URL)
		if err != nil {
			return 0, err
		}
		v, ok := kv[p.Metric]
		if !ok {
			return 0, fmt.Errorf("metric %s not found at %s", p.Metric, p.URL)
		}
		raw = v
	}

	return p.Transform.Transform(raw, now)
}

// Generate polls until ctx is done; poll misses are only logged
func (p *PollSource) Generate(ctx context.Context, emit func(*Lt.Update)) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			v, err := p.PollOnce(now)
			if err != nil {
				slog.Error("Failed to poll", slog.String("url", p.URL), slog.Any("Error", err))
				continue
			}
			emit(&Lt.Update{Time: now.UnixMilli(), Value: &v})
		}
	}
}
