package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/platform/apierr"
)

func pathID(c *gin.Context, code string) (uint, error) {
	raw := c.Param("id")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, apierr.NotFound(code, errors.New("invalid id "+strconv.Quote(raw)))
	}
	return uint(n), nil
}

// queryParams collects field errors so a request reports every bad parameter at once.
type queryParams struct {
	c      *gin.Context
	fields map[string]string
}

func newQueryParams(c *gin.Context) *queryParams {
	return &queryParams{c: c, fields: map[string]string{}}
}

func (q *queryParams) uint(name string) uint {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		q.fields[name] = "must be a positive integer"
		return 0
	}
	return uint(n)
}

func (q *queryParams) int(name string, def int) int {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fields[name] = "must be an integer"
		return def
	}
	return n
}

func (q *queryParams) optBool(name string) *bool {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fields[name] = "must be a boolean"
		return nil
	}
	return &b
}

func (q *queryParams) optFloat(name string) *float64 {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fields[name] = "must be a number"
		return nil
	}
	return &f
}

func (q *queryParams) page() repos.Page {
	return repos.Page{Page: q.int("page", 1), PerPage: q.int("per_page", repos.DefaultPerPage)}
}

func (q *queryParams) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return apierr.Validation(q.fields)
}
