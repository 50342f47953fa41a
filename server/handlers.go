package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/storage"
)

const (
	contentTypeHTML    = "text/html; charset=utf-8"
	defaultSearchLimit = 5
	maxSearchLimit     = 100
)

// SearchHit is one entry of a search response.
type SearchHit struct {
	ID    uint64            `json:"id"`
	Score float32           `json:"score"`
	Text  string            `json:"text"`
	Extra map[string]string `json:"extra,omitempty"`
}

// CollectionResponse describes a collection.
type CollectionResponse struct {
	Name        string `json:"name"`
	VectorSize  uint64 `json:"vector_size"`
	PointsCount uint64 `json:"points_count"`
}

type ingestResult struct {
	report *ingestion.Report
	err    error
}

func (s *Server) handleIngest(c *gin.Context) {
	logger := s.loggerFrom(c)

	req, err := parseIngestRequest(c)
	if err != nil {
		logger.Warn("rejected ingestion request", "err", err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	// A started run completes even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	done := make(chan ingestResult, 1)
	err = s.pool.Submit(func() {
		// ants recovers worker panics on its own; the handler must still get an answer.
		defer func() {
			if r := recover(); r != nil {
				logger.Error("ingestion panicked", "collection", req.Collection, "panic", r)
				done <- ingestResult{
					report: &ingestion.Report{Collection: req.Collection},
					err:    fmt.Errorf("%w: %v", ErrIngestionPanicked, r),
				}
			}
		}()
		report, err := s.pipeline.Ingest(ctx, req)
		done <- ingestResult{report: report, err: err}
	})
	if err != nil {
		logger.Error("cannot schedule ingestion", "err", err)
		c.String(http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	res := <-done
	msg := ingestion.Message(res.report, res.err)
	if res.err != nil {
		logger.Warn("ingestion aborted", "collection", req.Collection, "message", msg, "err", res.err)
	}
	c.Data(http.StatusOK, contentTypeHTML, []byte(msg))
}

func parseIngestRequest(c *gin.Context) (ingestion.Request, error) {
	var req ingestion.Request

	name := c.Query("collection_name")
	if name == "" {
		return req, fmt.Errorf("%w: collection_name", ErrMissingParameter)
	}
	rawSize := c.Query("vector_size")
	if rawSize == "" {
		return req, fmt.Errorf("%w: vector_size", ErrMissingParameter)
	}
	size, err := strconv.ParseUint(rawSize, 10, 64)
	if err != nil {
		return req, fmt.Errorf("%w: vector_size %q", ErrInvalidParameter, rawSize)
	}
	_, reset := c.GetQuery("reset")

	body, err := c.GetRawData()
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	if !utf8.Valid(body) {
		return req, fmt.Errorf("%w: body is not valid UTF-8", ErrInvalidBody)
	}

	return ingestion.Request{
		Collection: name,
		VectorSize: size,
		Reset:      reset,
		Body:       string(body),
	}, nil
}

func (s *Server) handleSearch(c *gin.Context) {
	name := c.Query("collection_name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: collection_name", ErrMissingParameter)})
		return
	}
	query := c.Query("q")

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: limit %q", ErrInvalidParameter, raw)})
			return
		}
		limit = n
	}

	results, err := s.searcher.FindSimilar(c.Request.Context(), name, query, limit)
	if err != nil {
		s.loggerFrom(c).Warn("search failed", "collection", name, "err", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			ID:    uint64(r.Point.ID),
			Score: r.Score,
			Text:  r.Point.Payload.Text,
			Extra: r.Point.Payload.Extra,
		})
	}
	c.JSON(http.StatusOK, hits)
}

func (s *Server) handleCollectionInfo(c *gin.Context) {
	info, err := s.store.CollectionInfo(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, CollectionResponse{
		Name:        info.Name,
		VectorSize:  info.VectorSize,
		PointsCount: info.PointsCount,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, storage.ErrInvalidQuery),
		errors.Is(err, storage.ErrDimensionMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
