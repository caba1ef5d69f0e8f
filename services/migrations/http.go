// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"github.com/hashicorp/go-retryablehttp"
)

// apiClient reads the JSON api of an import source, 429 and 5xx answers are retried with backoff
type apiClient struct {
	source  string
	baseURL *url.URL
	client  *retryablehttp.Client
	auth    func(req *http.Request)
}

// retryLogger forwards the retry decisions of the http client to the log module
type retryLogger struct {
	source string
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	log.Error("%s importer: %s %v", l.source, msg, keysAndValues)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	log.Debug("%s importer: %s %v", l.source, msg, keysAndValues)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	log.Trace("%s importer: %s %v", l.source, msg, keysAndValues)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	log.Warn("%s importer: %s %v", l.source, msg, keysAndValues)
}

func newAPIClient(source, baseURL string, auth func(req *http.Request)) (*apiClient, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(baseURL), "/") + "/")
	if err != nil {
		return nil, util.NewInvalidArgumentErrorf("invalid %s url %q: %v", source, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, util.NewInvalidArgumentErrorf("invalid %s url %q: scheme must be http or https", source, baseURL)
	}

	c := retryablehttp.NewClient()
	c.RetryMax = max(setting.Importer.RetryTimes-1, 0)
	c.RetryWaitMin = time.Duration(setting.Importer.RetryDelay) * time.Second
	c.RetryWaitMax = 8 * c.RetryWaitMin
	c.HTTPClient.Timeout = setting.Importer.HTTPTimeout
	c.Logger = retryLogger{source: source}

	return &apiClient{source: source, baseURL: u, client: c, auth: auth}, nil
}

func (c *apiClient) do(ctx context.Context, rawURL string, accept string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.auth != nil {
		c.auth(req.Request)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, base.ErrSourceUnauthorized{Source: c.source}
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s api %s: status %d: %s", c.source, rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// getJSON decodes the answer of an endpoint relative to the base url
func (c *apiClient) getJSON(ctx context.Context, endpoint string, query url.Values, result any) error {
	u, err := c.baseURL.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	resp, err := c.do(ctx, u.String(), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%s api %s: %w", c.source, u, err)
	}
	return nil
}

// download opens an absolute url with the credentials of the source
func (c *apiClient) download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
