// Package reportclient reads stored reports from a calltrace service.
package reportclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/getsentry/calltrace/internal/report"
)

// ErrReportNotFound is returned when the service doesn't know a report.
var ErrReportNotFound = errors.New("report not found")

type Client struct {
	http *httpclient.Client
	url  string
}

func NewClient(host string, retries int) (Client, error) {
	if host == "" {
		return Client{}, errors.New("host must be set")
	}
	backoff := heimdall.NewConstantBackoff(100*time.Millisecond, 50*time.Millisecond)
	return Client{
		url: strings.TrimRight(host, "/") + "/reports/",
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(30*time.Second),
			httpclient.WithRetryCount(retries),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
	}, nil
}

func (c Client) get(ctx context.Context, id, format string) (io.ReadCloser, error) {
	u := c.url + url.PathEscape(id)
	if format != "" {
		u += "?format=" + url.QueryEscape(format)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, fmt.Errorf("error while trying to fetch report %s. http status: %d", id, resp.StatusCode)
	}
	return resp.Body, nil
}

// Report fetches the report with id.
func (c Client) Report(ctx context.Context, id string) (report.Report, error) {
	body, err := c.get(ctx, id, "")
	if err != nil {
		return report.Report{}, err
	}
	defer body.Close()
	var r report.Report
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return report.Report{}, err
	}
	return r, nil
}

// Traceback fetches the text traceback of the report with id.
func (c Client) Traceback(ctx context.Context, id string) (io.ReadCloser, error) {
	return c.get(ctx, id, "text")
}
