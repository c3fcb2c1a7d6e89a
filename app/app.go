// Package app assembles the HTTP API: repositories, services, controllers
// and the filters every request passes through.
package app

import (
	"fmt"
	"net/http"
	"time"

	"moviebox-restful/auth"
	"moviebox-restful/config"
	"moviebox-restful/controllers"
	"moviebox-restful/metrics"
	"moviebox-restful/policy"
	"moviebox-restful/repositories"
	"moviebox-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// App is the wired application. The services are exposed for the gRPC server.
type App struct {
	Container *restful.Container
	Sessions  *auth.Manager
	Users     services.UserService
	Movies    services.MovieService
	Items     services.ItemService
	Metrics   *metrics.Metrics

	handler http.Handler
}

type options struct {
	passwordCost int
}

type Option func(*options)

// WithPasswordCost sets the bcrypt cost for new passwords.
func WithPasswordCost(cost int) Option {
	return func(o *options) { o.passwordCost = cost }
}

func New(cfg config.Config, db *gorm.DB, store auth.SessionStore, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{passwordCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}

	authz, err := policy.NewCasbinPolicy()
	if err != nil {
		return nil, fmt.Errorf("load authorization policy: %w", err)
	}

	relations := repositories.NewRelationRepository(db)
	a := &App{
		Sessions: auth.NewManager(store, cfg.Session, logger.Named("session")),
		Users:    services.NewUserServiceWithCost(repositories.NewUserRepository(db), o.passwordCost),
		Movies:   services.NewMovieService(repositories.NewMovieRepository(db), relations, authz),
		Items:    services.NewItemService(repositories.NewItemRepository(db), relations, authz),
		Metrics:  metrics.New(),
	}
	genres := services.NewGenreService(repositories.NewGenreRepository(db), authz)
	tags := services.NewTagService(repositories.NewTagRepository(db), authz)

	restful.DefaultRequestContentType(restful.MIME_JSON)
	restful.DefaultResponseContentType(restful.MIME_JSON)

	container := restful.NewContainer()
	container.DoNotRecover(false)
	container.RecoverHandler(recoverHandler(logger))
	container.ServiceErrorHandler(serviceErrorHandler)

	container.Filter(RequestLogger(logger.Named("http")))
	container.Filter(a.Metrics.Filter)
	container.Filter(auth.SessionFilter(a.Sessions))
	container.Filter(auth.CSRFFilter(cfg.CSRF.HeaderName))

	controllers.NewAuthController(a.Users, a.Sessions, a.Metrics, logger).RegisterRoutes(container)
	controllers.NewMovieController(a.Movies, cfg.Pagination.PageSize, a.Metrics, logger).RegisterRoutes(container)
	controllers.NewGenreController(genres, logger).RegisterRoutes(container)
	controllers.NewTagController(tags, logger).RegisterRoutes(container)
	controllers.NewItemController(a.Items, a.Metrics, logger).RegisterRoutes(container)
	controllers.NewStatsController(a.Movies, a.Items, logger).RegisterRoutes(container)
	controllers.NewHealthController(db, logger).RegisterRoutes(container)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
	container.Handle("/metrics", a.Metrics.Handler())

	a.Container = container
	a.handler = wrap(container, cfg)
	return a, nil
}

// Handler is the container behind the HTTP middleware stack.
func (a *App) Handler() http.Handler { return a.handler }

func wrap(container *restful.Container, cfg config.Config) http.Handler {
	var h http.Handler = container
	if n := cfg.RateLimit.RequestsPerMinute; n > 0 {
		h = httprate.LimitByIP(n, time.Minute)(h)
	}
	csrfHeader := cfg.CSRF.HeaderName
	if csrfHeader == "" {
		csrfHeader = "X-CSRFToken"
	}
	h = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
	return stripTrailingSlash(h)
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Moviebox API",
			Description: "Movies, genres and watchlists; items, tags and favorites.",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "auth", Description: "Session sign-in and CSRF"}},
		{TagProps: spec.TagProps{Name: "movies", Description: "Movies and watchlist toggles"}},
		{TagProps: spec.TagProps{Name: "items", Description: "Owned items and favorite toggles"}},
	}
}
