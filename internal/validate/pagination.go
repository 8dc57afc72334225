package validate

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside an int for every allowed limit.
	MaxPage = math.MaxInt / MaxLimit
)

// Page is a normalized pagination window.
type Page struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

type pageKey struct{}

// CheckPagination parses the page and limit query parameters. Empty values
// count as absent.
func CheckPagination(q url.Values) (Page, error) {
	p := Page{Page: DefaultPage, Limit: DefaultLimit}

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPage {
			return Page{}, badRequest("Invalid page number")
		}
		p.Page = n
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, badRequest("Invalid limit (must be 1-100)")
		}
		p.Limit = n
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p, nil
}

// Pagination validates page/limit and publishes the normalized Page.
func Pagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := CheckPagination(r.URL.Query())
		if err != nil {
			writeError(w, "pagination", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageKey{}, p)))
	})
}

// PageFromContext returns the Page published by Pagination, or the defaults.
func PageFromContext(ctx context.Context) Page {
	if p, ok := ctx.Value(pageKey{}).(Page); ok {
		return p
	}
	return Page{Page: DefaultPage, Limit: DefaultLimit}
}
