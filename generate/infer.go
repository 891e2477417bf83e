package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client calls generateContent over plain REST.
type Client struct {
	opts Options
}

// NewClient creates a REST client. Missing options take the defaults.
func NewClient(opts Options) *Client {
	return &Client{opts: opts.withDefaults()}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one generateContent call and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     *c.opts.Temperature,
			TopP:            *c.opts.TopP,
			TopK:            c.opts.TopK,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.opts.BaseURL, "/"), c.opts.Model, url.QueryEscape(req.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := statusFallback(resp.Status)
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", &ProtocolError{Status: resp.StatusCode, Message: msg}
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &ProtocolError{Message: invalidFormat}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &ProtocolError{Message: invalidFormat}
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", &ProtocolError{Message: invalidFormat}
	}
	return text, nil
}
