package generate

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// SDKClient calls generateContent through the google.golang.org/genai SDK.
type SDKClient struct {
	opts Options
}

// NewSDKClient creates an SDK-backed generator. Missing options take the defaults.
func NewSDKClient(opts Options) *SDKClient {
	return &SDKClient{opts: opts.withDefaults()}
}

// Generate sends one generateContent call and returns the response text.
func (c *SDKClient) Generate(ctx context.Context, req Request) (string, error) {
	root, version := splitAPIVersion(c.opts.BaseURL)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     req.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    root,
			APIVersion: version,
		},
	})
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, c.opts.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(*c.opts.Temperature)),
		TopP:            genai.Ptr(float32(*c.opts.TopP)),
		TopK:            genai.Ptr(float32(c.opts.TopK)),
		MaxOutputTokens: int32(c.opts.MaxOutputTokens),
	})
	if err != nil {
		return "", sdkError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProtocolError{Message: invalidFormat}
	}
	return text, nil
}

// sdkError maps SDK failures onto the same error types the REST client returns.
func sdkError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiProtocolError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiProtocolError(*apiErrPtr)
	}
	return &TransportError{Err: err}
}

func apiProtocolError(e genai.APIError) *ProtocolError {
	msg := e.Message
	if msg == "" {
		msg = statusFallback(strings.TrimSpace(strings.Join([]string{strconv.Itoa(e.Code), e.Status}, " ")))
	}
	return &ProtocolError{Status: e.Code, Message: msg}
}

// splitAPIVersion turns "https://host/v1beta" into ("https://host/", "v1beta").
func splitAPIVersion(base string) (root, version string) {
	u, err := url.Parse(base)
	if err != nil {
		return base, ""
	}
	path := strings.TrimRight(u.Path, "/")
	i := strings.LastIndex(path, "/")
	last := path[i+1:]
	if !strings.HasPrefix(last, "v1") {
		return strings.TrimRight(base, "/") + "/", ""
	}
	u.Path = path[:i+1]
	return u.String(), last
}
