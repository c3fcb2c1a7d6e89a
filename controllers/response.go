package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"moviebox-restful/services"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(resp *restful.Response, status int, v interface{}) {
	_ = resp.WriteHeaderAndJson(status, v, restful.MIME_JSON)
}

func writeError(resp *restful.Response, status int, msg string) {
	writeJSON(resp, status, ErrorResponse{Error: msg})
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		// validation, authentication and conflict errors all surface as 400
		return http.StatusBadRequest
	}
}

// handleServiceError writes err as a JSON error. Errors the client cannot act
// on are logged and hidden behind a generic 500.
func handleServiceError(logger *zap.Logger, req *restful.Request, resp *restful.Response, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		writeError(resp, statusFor(se.Kind), se.Message)
		return
	}
	logger.Error("Request failed",
		zap.String("method", req.Request.Method),
		zap.String("path", req.Request.URL.Path),
		zap.Error(err))
	writeError(resp, http.StatusInternalServerError, "internal server error")
}

// readJSON decodes the body into v. An empty body leaves v untouched.
func readJSON(req *restful.Request, v interface{}) error {
	if err := req.ReadEntity(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID parses a numeric path parameter; anything else is treated as a
// missing resource.
func pathID(req *restful.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(req.PathParameter(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
