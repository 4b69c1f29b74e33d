package sui

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// retryDo executes req with exponential backoff retry, replaying body on
// each attempt. Retries on network errors, HTTP 429, and HTTP 5xx; does not
// retry 4xx client errors. Adapted from the teacher's HTTP retry helper.
func retryDo(client *http.Client, req *http.Request, body []byte, maxAttempts int) (*http.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastResp *http.Response
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			lastResp = nil
			continue
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastResp = resp
		lastErr = nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}
