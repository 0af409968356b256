package action

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

// httpClient is shared across HttpRequest actions. Its own internal
// retry loop is disabled (RetryMax: 0) because action-level retry is
// already governed by the action's own pipeline.ActionRetry policy; using
// both would retry-within-a-retry.
var httpClient = func() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.Logger = nil
	return c
}()

func (e *Executor) executeHTTPRequest(ctx context.Context, ev ups.Event, act pipeline.Action) error {
	method := act.Method
	if method == "" {
		method = http.MethodGet
	}

	body := e.replacePlaceholders(act.Body, ev)

	req, err := retryablehttp.NewRequestWithContext(ctx, method, act.URL, bytes.NewBufferString(body))
	if err != nil {
		return fmt.Errorf("action: build http request: %w", err)
	}
	for k, v := range act.Headers {
		req.Header.Set(k, e.replacePlaceholders(v, ev))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("action: http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("action: http request to %s returned %d: %s", act.URL, resp.StatusCode, respBody)
	}
	return nil
}
