package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

const (
	// DefaultTimeout bounds each request to the Qdrant server.
	DefaultTimeout = 10 * time.Second

	distanceCosine = "Cosine"
)

// Store implements storage.CollectionStore against the Qdrant REST API.
type Store struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ storage.CollectionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithAPIKey sets the key sent in the api-key header.
func WithAPIKey(key string) Option {
	return func(s *Store) {
		s.apiKey = key
	}
}

// WithTimeout sets the per-request timeout. Values <= 0 keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store talking to the Qdrant server at baseURL,
// e.g. "http://localhost:6333".
func NewStore(baseURL string, opts ...Option) (storage.CollectionStore, error) {
	return newStore(baseURL, opts...)
}

func newStore(baseURL string, opts ...Option) (*Store, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("qdrant: base url is required")
	}
	s := &Store{
		baseURL: base,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "qdrant-store")

	s.client = resty.New().
		SetBaseURL(base).
		SetTimeout(s.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if s.apiKey != "" {
		s.client.SetHeader("api-key", s.apiKey)
	}
	return s, nil
}

// Close is a no-op; the underlying HTTP client holds no exclusive resources.
func (s *Store) Close() error {
	return nil
}

// apiError is the error envelope returned by Qdrant.
type apiError struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

type collectionResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size uint64 `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type countResponse struct {
	Result struct {
		Count uint64 `json:"count"`
	} `json:"result"`
}

type pointBody struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type pointResponse struct {
	Result pointBody `json:"result"`
}

type searchResponse struct {
	Result []struct {
		pointBody
		Score float32 `json:"score"`
	} `json:"result"`
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// doRequest performs a request and maps HTTP failures onto storage errors.
func (s *Store) doRequest(ctx context.Context, method, path string, body, result any) (int, error) {
	req := s.client.R().SetContext(ctx).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return 0, fmt.Errorf("qdrant: request failed: %w", err)
	}
	s.logger.Debug("qdrant request completed", "method", method, "path", path, "status", resp.StatusCode())

	if resp.StatusCode() < 400 {
		return resp.StatusCode(), nil
	}
	msg := resp.String()
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Status.Error != "" {
		msg = apiErr.Status.Error
	}
	return resp.StatusCode(), fmt.Errorf("qdrant: %s (status %d)", msg, resp.StatusCode())
}

// CreateCollection creates a collection using cosine distance.
func (s *Store) CreateCollection(ctx context.Context, name string, params core.CollectionParams) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionParams(params); err != nil {
		return err
	}

	status, err := s.doRequest(ctx, http.MethodGet, collectionPath(name), nil, nil)
	if err == nil {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
	}
	if status != http.StatusNotFound {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     params.VectorSize,
			"distance": distanceCosine,
		},
	}
	status, err = s.doRequest(ctx, http.MethodPut, collectionPath(name), body, nil)
	if status == http.StatusConflict {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
	}
	return err
}

// DeleteCollection removes a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.CollectionInfo(ctx, name); err != nil {
		return err
	}
	_, err := s.doRequest(ctx, http.MethodDelete, collectionPath(name), nil, nil)
	return err
}

// CollectionInfo returns the vector size and the exact point count of a collection.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	var col collectionResponse
	status, err := s.doRequest(ctx, http.MethodGet, collectionPath(name), nil, &col)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var count countResponse
	if _, err := s.doRequest(ctx, http.MethodPost, collectionPath(name)+"/points/count",
		map[string]any{"exact": true}, &count); err != nil {
		return nil, err
	}

	return &core.CollectionInfo{
		Name:        name,
		VectorSize:  col.Result.Config.Params.Vectors.Size,
		PointsCount: count.Result.Count,
	}, nil
}

// UpsertPoints sends all points in one request and waits for them to be applied.
func (s *Store) UpsertPoints(ctx context.Context, name string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}
	bodies := make([]pointBody, 0, len(points))
	for _, p := range points {
		if err := core.ValidatePoint(p, 0); err != nil {
			return err
		}
		bodies = append(bodies, toPointBody(p))
	}

	status, err := s.doRequest(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true",
		map[string]any{"points": bodies}, nil)
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "dimension"):
		return fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
	}
	return err
}

// GetPoint retrieves a single point with its vector.
func (s *Store) GetPoint(ctx context.Context, name string, id core.PointID) (*core.Point, error) {
	var resp pointResponse
	status, err := s.doRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/points/%d", collectionPath(name), id), nil, &resp)
	if status == http.StatusNotFound {
		if _, infoErr := s.CollectionInfo(ctx, name); infoErr != nil {
			return nil, infoErr
		}
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromPointBody(resp.Result), nil
}

// Search returns the closest points with payloads. Vectors are not returned.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]*core.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp searchResponse
	status, err := s.doRequest(ctx, http.MethodPost, collectionPath(name)+"/points/search", body, &resp)
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "dimension"):
		return nil, fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
	case err != nil:
		return nil, err
	}

	results := make([]*core.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, &core.ScoredPoint{
			Point: fromPointBody(r.pointBody),
			Score: r.Score,
		})
	}
	return results, nil
}

func toPointBody(p *core.Point) pointBody {
	payload := make(map[string]any, len(p.Payload.Extra)+1)
	for k, v := range p.Payload.Extra {
		payload[k] = v
	}
	payload[core.PayloadText] = p.Payload.Text
	return pointBody{
		ID:      uint64(p.ID),
		Vector:  p.Vector,
		Payload: payload,
	}
}

func fromPointBody(b pointBody) *core.Point {
	point := &core.Point{
		ID:     core.PointID(b.ID),
		Vector: b.Vector,
	}
	for k, v := range b.Payload {
		if k == core.PayloadText {
			point.Payload.Text, _ = v.(string)
			continue
		}
		if point.Payload.Extra == nil {
			point.Payload.Extra = make(map[string]string)
		}
		point.Payload.Extra[k] = fmt.Sprint(v)
	}
	return point
}
