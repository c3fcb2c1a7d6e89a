package controllers

import (
	"net/http"

	"moviebox-restful/auth"
	"moviebox-restful/metrics"
	"moviebox-restful/serializers"
	"moviebox-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// AuthController serves the session endpoints under /api/auth.
type AuthController struct {
	users    services.UserService
	sessions *auth.Manager
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAuthController(users services.UserService, sessions *auth.Manager, m *metrics.Metrics, logger *zap.Logger) *AuthController {
	return &AuthController{users: users, sessions: sessions, metrics: m, logger: logger}
}

// UserEnvelope wraps the user representation; User is null when anonymous.
type UserEnvelope struct {
	User *serializers.UserResponse `json:"user"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// RegisterRoutes sets up the session routes.
func (ctl *AuthController) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.Path("/api/auth").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"auth"}

	ws.Route(ws.GET("/me").To(ctl.meHandler).
		Doc("Current user, or null when anonymous").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserEnvelope{}).
		Returns(http.StatusOK, "OK", UserEnvelope{}))

	ws.Route(ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new user and sign in").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User created and signed in", UserEnvelope{}).
		Returns(http.StatusBadRequest, "Missing fields or username taken", ErrorResponse{}).
		Returns(http.StatusForbidden, "CSRF token missing or invalid", ErrorResponse{}))

	ws.Route(ws.POST("/login").To(ctl.loginHandler).
		Doc("Sign in with username and password").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Signed in", UserEnvelope{}).
		Returns(http.StatusBadRequest, "Invalid credentials", ErrorResponse{}).
		Returns(http.StatusForbidden, "CSRF token missing or invalid", ErrorResponse{}))

	ws.Route(ws.POST("/logout").To(ctl.logoutHandler).
		Doc("Sign out; succeeds when already anonymous").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Signed out", OKResponse{}))

	for _, path := range []string{"/csrf-token", "/csrf"} {
		ws.Route(ws.GET(path).To(ctl.csrfHandler).
			Doc("CSRF token bound to the session; send it back as X-CSRFToken").
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Returns(http.StatusOK, "OK", CSRFResponse{}))
	}

	container.Add(ws)
}

// ensureSession gives anonymous visitors a session so a CSRF token can be bound to it.
func (ctl *AuthController) ensureSession(req *restful.Request, resp *restful.Response) bool {
	session, err := ctl.sessions.Ensure(req.Request.Context(), resp, auth.SessionFrom(req))
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return false
	}
	auth.SetSession(req, session)
	return true
}

func (ctl *AuthController) meHandler(req *restful.Request, resp *restful.Response) {
	if !ctl.ensureSession(req, resp) {
		return
	}
	actor := auth.ActorFrom(req)
	if actor.Anonymous() {
		writeJSON(resp, http.StatusOK, UserEnvelope{})
		return
	}
	user, err := ctl.users.GetByID(req.Request.Context(), actor.UserID)
	if services.IsKind(err, services.KindNotFound) {
		// The account was deleted under a live session.
		writeJSON(resp, http.StatusOK, UserEnvelope{})
		return
	}
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	repr := serializers.User(user)
	writeJSON(resp, http.StatusOK, UserEnvelope{User: &repr})
}

func (ctl *AuthController) registerHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.RegisterInput)
	if err := readJSON(req, input); err != nil {
		writeError(resp, http.StatusBadRequest, err.Error())
		return
	}

	user, err := ctl.users.Register(req.Request.Context(), input)
	ctl.metrics.AuthEvent("register", err == nil)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	if _, err := ctl.sessions.Login(req.Request.Context(), resp, auth.SessionFrom(req), user.ID); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}

	ctl.logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	repr := serializers.User(user)
	writeJSON(resp, http.StatusCreated, UserEnvelope{User: &repr})
}

func (ctl *AuthController) loginHandler(req *restful.Request, resp *restful.Response) {
	creds := new(services.LoginInput)
	if err := readJSON(req, creds); err != nil {
		writeError(resp, http.StatusBadRequest, err.Error())
		return
	}

	user, err := ctl.users.Authenticate(req.Request.Context(), creds.Username, creds.Password)
	ctl.metrics.AuthEvent("login", err == nil)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	if _, err := ctl.sessions.Login(req.Request.Context(), resp, auth.SessionFrom(req), user.ID); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}

	repr := serializers.User(user)
	writeJSON(resp, http.StatusOK, UserEnvelope{User: &repr})
}

func (ctl *AuthController) logoutHandler(req *restful.Request, resp *restful.Response) {
	if _, err := ctl.sessions.Logout(req.Request.Context(), resp, auth.SessionFrom(req)); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	ctl.metrics.AuthEvent("logout", true)
	writeJSON(resp, http.StatusOK, OKResponse{OK: true})
}

func (ctl *AuthController) csrfHandler(req *restful.Request, resp *restful.Response) {
	if !ctl.ensureSession(req, resp) {
		return
	}
	writeJSON(resp, http.StatusOK, CSRFResponse{CSRFToken: auth.SessionFrom(req).CSRFToken})
}
