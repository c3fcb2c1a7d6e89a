package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"moviebox-restful/repositories"

	restful "github.com/emicklei/go-restful/v3"
)

// Paginated is a page of results with absolute links to its neighbours.
type Paginated[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageFrom reads ?page=; anything unparsable or below 1 means the first page.
func pageFrom(req *restful.Request, size int) repositories.Page {
	n, err := strconv.Atoi(req.QueryParameter("page"))
	if err != nil || n < 1 {
		n = 1
	}
	return repositories.Page{Number: n, Size: size}
}

func newPaginated[T any](req *http.Request, page repositories.Page, total int64, results []T) Paginated[T] {
	out := Paginated[T]{Count: total, Results: results}
	if page.HasNext(total) {
		out.Next = pageLink(req, page.Number+1)
	}
	if page.Number > 1 {
		out.Previous = pageLink(req, page.Number-1)
	}
	return out
}

func pageLink(req *http.Request, number int) *string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	query := req.URL.Query()
	if number <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(number))
	}
	u := url.URL{Scheme: scheme, Host: req.Host, Path: req.URL.Path, RawQuery: query.Encode()}
	link := u.String()
	return &link
}
