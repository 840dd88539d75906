// Package apiclient calls the inspection API over HTTP on behalf of the
// server-rendered dashboard, forwarding the browser's bearer token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"facility-checklist/internal/models"
)

var ErrUnauthorized = errors.New("unauthorized")

type forwardedForKey struct{}

// WithForwardedFor makes requests made with ctx carry the given X-Forwarded-For
// chain, so the API attributes them to the browser rather than to this client.
func WithForwardedFor(ctx context.Context, chain string) context.Context {
	return context.WithValue(ctx, forwardedForKey{}, chain)
}

// APIError is a non-2xx answer. Detail is the server's message, shown to users verbatim.
type APIError struct {
	Status int
	Detail string
	Fields []models.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// Is lets callers test for ErrUnauthorized with errors.Is.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type MutationResult struct {
	Status string             `json:"status"`
	ID     int64              `json:"id"`
	Record *models.Inspection `json:"record"`
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(models.Credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/register", "", "application/json", bytes.NewReader(body), nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/login", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListInspections(ctx context.Context, token string) ([]models.Inspection, error) {
	var out struct {
		Inspections []models.Inspection `json:"inspections"`
	}
	if err := c.do(ctx, http.MethodGet, "/inspections", token, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Inspections, nil
}

func (c *Client) GetInspection(ctx context.Context, token string, id int64) (*models.Inspection, error) {
	var out models.Inspection
	if err := c.do(ctx, http.MethodGet, "/inspections/"+strconv.FormatInt(id, 10), token, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateInspection(ctx context.Context, token string, in models.InspectionInput) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPost, "/inspection", token, in)
}

func (c *Client) UpdateInspection(ctx context.Context, token string, id int64, in models.InspectionInput) (*MutationResult, error) {
	return c.mutate(ctx, http.MethodPut, "/inspection/"+strconv.FormatInt(id, 10), token, in)
}

func (c *Client) DeleteInspection(ctx context.Context, token string, id int64) (*MutationResult, error) {
	var out MutationResult
	if err := c.do(ctx, http.MethodDelete, "/inspection/"+strconv.FormatInt(id, 10), token, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) mutate(ctx context.Context, method, path, token string, in models.InspectionInput) (*MutationResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out MutationResult
	if err := c.do(ctx, method, path, token, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if chain, _ := ctx.Value(forwardedForKey{}).(string); chain != "" {
		req.Header.Set("X-Forwarded-For", chain)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Detail string              `json:"detail"`
		Errors []models.FieldError `json:"errors"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
		apiErr.Fields = body.Errors
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Detail = text
	} else {
		apiErr.Detail = http.StatusText(status)
	}
	return apiErr
}
