package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
	Out       io.Writer
}

// statusError is a non-2xx answer from the sidecar
type statusError struct {
	Status int
	Body   []byte
}

func (e *statusError) Error() string {
	var resp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
	if json.Unmarshal(e.Body, &resp) == nil && resp.Code != "" {
		msg := fmt.Sprintf("status=%d %s: %s", e.Status, resp.Code, resp.Message)
		for _, d := range resp.Details {
			msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
		}
		return msg
	}
	return fmt.Sprintf("status=%d body=%s", e.Status, strings.TrimSpace(string(e.Body)))
}

func (c *client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &statusError{Status: resp.StatusCode, Body: b}
	}
	return b, nil
}

func (c *client) print(body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(c.Out, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(c.Out, string(body))
	} else {
		fmt.Fprintln(c.Out, "ok")
	}
}
