package app

import (
	"net"
	"net/http"
	"strings"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	AttrRequestID   = "request_id"
)

// RequestLogger tags each request with an id and logs it once it has been served.
func RequestLogger(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()

		requestID := req.HeaderParameter(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		req.SetAttribute(AttrRequestID, requestID)
		resp.AddHeader(RequestIDHeader, requestID)

		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("client_ip", clientIP(req.Request)),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("request_id", requestID),
		)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// stripTrailingSlash serves /api/auth/csrf/ as /api/auth/csrf.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

func recoverHandler(logger *zap.Logger) restful.RecoverHandleFunction {
	return func(reason interface{}, w http.ResponseWriter) {
		logger.Error("Recovered from panic", zap.Any("reason", reason), zap.Stack("stack"))
		w.Header().Set("Content-Type", restful.MIME_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
	}
}

// serviceErrorHandler renders routing failures (404, 405, 415) as JSON.
func serviceErrorHandler(serviceErr restful.ServiceError, _ *restful.Request, resp *restful.Response) {
	msg := serviceErr.Message
	if msg == "" {
		msg = http.StatusText(serviceErr.Code)
	}
	_ = resp.WriteHeaderAndJson(serviceErr.Code, map[string]string{"error": msg}, restful.MIME_JSON)
}
