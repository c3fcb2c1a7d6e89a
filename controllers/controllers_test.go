package controllers

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"moviebox-restful/services"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPageFrom(t *testing.T) {
	for query, want := range map[string]int{"": 1, "page=3": 3, "page=0": 1, "page=-2": 1, "page=x": 1} {
		req := restful.NewRequest(httptest.NewRequest(http.MethodGet, "/api/movies?"+query, nil))
		assert.Equal(t, want, pageFrom(req, 12).Number, query)
	}
}

func TestNewPaginatedLinks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/movies?genre=Drama&page=2", nil)
	page := pageFrom(restful.NewRequest(req), 2)

	out := newPaginated(req, page, 5, []int{1, 2})
	require.NotNil(t, out.Next)
	require.NotNil(t, out.Previous)
	assert.Equal(t, "http://example.com/api/movies?genre=Drama&page=3", *out.Next)
	assert.Equal(t, "http://example.com/api/movies?genre=Drama", *out.Previous)

	last := newPaginated(req, page, 4, []int{3, 4})
	assert.Nil(t, last.Next)
}

func TestNewPaginatedFarPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/movies?page=9223372036854775807", nil)
	page := pageFrom(restful.NewRequest(req), 12)
	require.Equal(t, math.MaxInt, page.Number)

	out := newPaginated(req, page, 30, []int{})
	assert.Nil(t, out.Next)
	require.NotNil(t, out.Previous)
	assert.Equal(t, "http://example.com/api/movies?page=9223372036854775806", *out.Previous)
}

func TestPageLinkHonoursForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/movies", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	assert.Equal(t, "https://example.com/api/movies?page=2", *pageLink(req, 2))
}

func TestHandleServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&services.Error{Kind: services.KindValidation, Message: "title is required"}, http.StatusBadRequest, "title is required"},
		{&services.Error{Kind: services.KindConflict, Message: "username taken"}, http.StatusBadRequest, "username taken"},
		{&services.Error{Kind: services.KindAuthentication, Message: "invalid credentials"}, http.StatusBadRequest, "invalid credentials"},
		{&services.Error{Kind: services.KindAuthorization, Message: "nope"}, http.StatusForbidden, "nope"},
		{&services.Error{Kind: services.KindNotFound, Message: "movie not found"}, http.StatusNotFound, "movie not found"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := restful.NewRequest(httptest.NewRequest(http.MethodGet, "/api/movies/1", nil))
		resp := restful.NewResponse(rec)
		resp.SetRequestAccepts(restful.MIME_JSON)

		handleServiceError(zap.NewNop(), req, resp, tc.err)

		assert.Equal(t, tc.status, rec.Code)
		assert.JSONEq(t, `{"error":"`+tc.msg+`"}`, rec.Body.String())
	}
}

func TestPathID(t *testing.T) {
	ws := new(restful.WebService)
	ws.Path("/things")
	var got []bool
	ws.Route(ws.GET("/{id}").To(func(req *restful.Request, resp *restful.Response) {
		_, ok := pathID(req, "id")
		got = append(got, ok)
	}))
	c := restful.NewContainer()
	c.Add(ws)

	for _, p := range []string{"/things/7", "/things/0", "/things/abc"} {
		c.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, []bool{true, false, false}, got)
}
