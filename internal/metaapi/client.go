// Package metaapi is a thin typed client for the Meta Graph and Conversions
// APIs. It encapsulates all outbound HTTP to the ads platform: OAuth token
// exchange, page and lead lookups, and conversion-event submission.
package metaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/config"
)

// Client talks to the Graph API. All calls have a bounded timeout; a timeout
// or non-2xx response is returned as an apperr.KindUpstream error.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
}

// NewClient creates a Graph API client from configuration.
func NewClient(cfg config.MetaConfig) *Client {
	timeout := cfg.GetMetaHTTPTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.GetMetaGraphBaseURL(), "/"),
		appID:     cfg.GetMetaAppID(),
		appSecret: cfg.GetMetaAppSecret(),
		http:      &http.Client{Timeout: timeout},
	}
}

// ExchangeCode exchanges an OAuth authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (TokenResponse, error) {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)

	var resp TokenResponse
	if err := c.get(ctx, "/oauth/access_token", q, &resp); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

// ExchangeLongLivedToken upgrades a short-lived user token to a long-lived one.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, shortToken string) (TokenResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("fb_exchange_token", shortToken)

	var resp TokenResponse
	if err := c.get(ctx, "/oauth/access_token", q, &resp); err != nil {
		return TokenResponse{}, err
	}
	return resp, nil
}

// ListPages returns the pages the user manages, each with its page access token.
func (c *Client) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	q := url.Values{}
	q.Set("access_token", userToken)
	q.Set("fields", "id,name,access_token")

	var resp pageListResponse
	if err := c.get(ctx, "/me/accounts", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetLeadData fetches the full field data for one form submission.
func (c *Client) GetLeadData(ctx context.Context, leadgenID, pageToken string) (LeadData, error) {
	q := url.Values{}
	q.Set("access_token", pageToken)
	q.Set("fields", "id,created_time,ad_id,form_id,field_data")

	var resp LeadData
	if err := c.get(ctx, "/"+url.PathEscape(leadgenID), q, &resp); err != nil {
		return LeadData{}, err
	}
	return resp, nil
}

// GetFormName fetches the display name of a lead form.
func (c *Client) GetFormName(ctx context.Context, formID, pageToken string) (string, error) {
	q := url.Values{}
	q.Set("access_token", pageToken)
	q.Set("fields", "id,name")

	var resp formResponse
	if err := c.get(ctx, "/"+url.PathEscape(formID), q, &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

// SendConversionEvent submits one conversion event to the pixel's server-side
// events endpoint.
func (c *Client) SendConversionEvent(ctx context.Context, pixelID, accessToken string, event ConversionEvent) (ConversionResponse, error) {
	body, err := json.Marshal(conversionRequest{Data: []ConversionEvent{event}})
	if err != nil {
		return ConversionResponse{}, fmt.Errorf("marshal conversion event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/events?access_token=%s", c.baseURL, url.PathEscape(pixelID), url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return ConversionResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp ConversionResponse
	if err := c.do(req, &resp); err != nil {
		return ConversionResponse{}, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "ads platform request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "read ads platform response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Upstream(upstreamMessage(resp.StatusCode, data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "decode ads platform response", err)
	}
	return nil
}

// upstreamMessage extracts the Graph error message when present so logs carry
// something more useful than a bare status code.
func upstreamMessage(status int, body []byte) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return fmt.Sprintf("ads platform returned %d: %s", status, ge.Error.Message)
	}
	return fmt.Sprintf("ads platform returned %d", status)
}
