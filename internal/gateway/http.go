package gateway

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

	"app/internal/model"

	"github.com/rs/zerolog"
)

// httpGateway talks to the upstream course API over JSON/HTTP.
type httpGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  zerolog.Logger
}

// NewHTTP returns a Gateway backed by the upstream course API at baseURL.
func NewHTTP(baseURL string, tokens TokenSource, logger zerolog.Logger) Gateway {
	return &httpGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		logger:  logger.With().Str("service", "CourseGateway").Logger(),
	}
}

func (g *httpGateway) CreateCourse(ctx context.Context, payload *model.Course) (*model.Course, error) {
	return g.roundTrip(ctx, http.MethodPost, "/courses", payload)
}

func (g *httpGateway) UpdateCourse(ctx context.Context, identifier string, payload *model.Course) (*model.Course, error) {
	return g.roundTrip(ctx, http.MethodPut, "/courses/"+url.PathEscape(identifier), payload)
}

func (g *httpGateway) PublishCourse(ctx context.Context, identifier string, publish bool) (*model.Course, error) {
	body := struct {
		Published bool `json:"is_published"`
	}{Published: publish}
	return g.roundTrip(ctx, http.MethodPost, "/courses/"+url.PathEscape(identifier)+"/publish", body)
}

func (g *httpGateway) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	return g.roundTrip(ctx, http.MethodGet, "/courses/"+url.PathEscape(slug), nil)
}

func (g *httpGateway) roundTrip(ctx context.Context, method, path string, body any) (*model.Course, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request to course API: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, g.decodeError(resp)
	}

	var course model.Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	g.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("duration", time.Since(start).String()).
		Msg("Course API call succeeded")
	return &course, nil
}

// decodeError maps a non-2xx response onto *Error. Falls back to the raw body
// when the backend did not send the structured error shape.
func (g *httpGateway) decodeError(resp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		g.logger.Warn().Err(readErr).Int("status_code", resp.StatusCode).Msg("Failed to read error body from course API")
		return &Error{Message: "course API request failed", Status: resp.StatusCode}
	}

	var apiErr Error
	if err := json.Unmarshal(bodyBytes, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.Status = resp.StatusCode
		g.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("Course API returned error")
		return &apiErr
	}

	g.logger.Error().
		Int("status_code", resp.StatusCode).
		Str("error_body", string(bodyBytes)).
		Msg("Course API returned error")
	return &Error{Message: strings.TrimSpace(string(bodyBytes)), Status: resp.StatusCode}
}
