package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"moviebox-restful/models"
	"moviebox-restful/policy"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// Request attribute keys set by SessionFilter.
const (
	AttrSession = "session"
	AttrUserID  = "user_id"
)

var (
	ErrCSRFTokenMissing = errors.New("CSRF token missing")
	ErrCSRFTokenInvalid = errors.New("CSRF token invalid")
)

func writeError(resp *restful.Response, status int, msg string) {
	_ = resp.WriteHeaderAndJson(status, map[string]string{"error": msg}, restful.MIME_JSON)
}

// SessionFilter attaches the request's session (possibly nil) and user id.
func SessionFilter(m *Manager) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		session, err := m.Load(req.Request)
		if err != nil {
			m.logger.Error("Failed to load session", zap.Error(err))
			writeError(resp, http.StatusInternalServerError, "internal server error")
			return
		}
		SetSession(req, session)
		chain.ProcessFilter(req, resp)
	}
}

// SetSession stores session on the request and derives the user id from it.
func SetSession(req *restful.Request, session *models.Session) {
	req.SetAttribute(AttrSession, session)
	var userID uint
	if session.Authenticated() {
		userID = *session.UserID
	}
	req.SetAttribute(AttrUserID, userID)
}

// SessionFrom returns the session SessionFilter attached, or nil.
func SessionFrom(req *restful.Request) *models.Session {
	session, _ := req.Attribute(AttrSession).(*models.Session)
	return session
}

// ActorFrom returns who the request acts as.
func ActorFrom(req *restful.Request) policy.Actor {
	userID, _ := req.Attribute(AttrUserID).(uint)
	return policy.Actor{UserID: userID}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// CSRFFilter rejects unsafe requests whose header token does not match the
// session's. It must run after SessionFilter.
func CSRFFilter(headerName string) restful.FilterFunction {
	if headerName == "" {
		headerName = "X-CSRFToken"
	}
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if safeMethod(req.Request.Method) {
			chain.ProcessFilter(req, resp)
			return
		}
		if err := CheckCSRF(SessionFrom(req), req.HeaderParameter(headerName)); err != nil {
			writeError(resp, http.StatusForbidden, err.Error())
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// CheckCSRF compares the submitted token with the session's in constant time.
func CheckCSRF(session *models.Session, submitted string) error {
	if submitted == "" {
		return ErrCSRFTokenMissing
	}
	if session == nil || session.CSRFToken == "" {
		return ErrCSRFTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(session.CSRFToken)) != 1 {
		return ErrCSRFTokenInvalid
	}
	return nil
}
