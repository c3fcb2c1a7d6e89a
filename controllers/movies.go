package controllers

import (
	"net/http"

	"moviebox-restful/auth"
	"moviebox-restful/metrics"
	"moviebox-restful/repositories"
	"moviebox-restful/serializers"
	"moviebox-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

type MovieController struct {
	movies   services.MovieService
	pageSize int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewMovieController(movies services.MovieService, pageSize int, m *metrics.Metrics, logger *zap.Logger) *MovieController {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &MovieController{movies: movies, pageSize: pageSize, metrics: m, logger: logger}
}

type WatchlistStatus struct {
	InWatchlist bool `json:"in_watchlist"`
}

// RegisterRoutes mounts /api/movies and /api/watchlist.
func (ctl *MovieController) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.Path("/api/movies").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"movies"}
	idParam := ws.PathParameter("movie-id", "Identifier of the movie").DataType("integer")

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List movies").
		Param(ws.QueryParameter("genre", "Genre name, case-insensitive exact match")).
		Param(ws.QueryParameter("q", "Case-insensitive substring of the title")).
		Param(ws.QueryParameter("sort", "rating, year or title; newest first otherwise")).
		Param(ws.QueryParameter("page", "Page number").DataType("integer").DefaultValue("1")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(Paginated[serializers.MovieResponse]{}).
		Returns(http.StatusOK, "OK", Paginated[serializers.MovieResponse]{}))

	ws.Route(ws.POST("").To(ctl.createHandler).
		Doc("Create a movie").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.MovieInput{}).
		Returns(http.StatusCreated, "Created", serializers.MovieResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}))

	ws.Route(ws.GET("/{movie-id}").To(ctl.getHandler).
		Doc("Get a movie").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(serializers.MovieResponse{}).
		Returns(http.StatusOK, "OK", serializers.MovieResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{movie-id}").To(ctl.updateHandler(false)).
		Doc("Replace a movie").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.MovieInput{}).
		Returns(http.StatusOK, "Updated", serializers.MovieResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{movie-id}").To(ctl.updateHandler(true)).
		Doc("Update some fields of a movie").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.MovieInput{}).
		Returns(http.StatusOK, "Updated", serializers.MovieResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{movie-id}").To(ctl.deleteHandler).
		Doc("Delete a movie").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.POST("/{movie-id}/add_to_watchlist").To(ctl.toggleHandler("add")).
		Doc("Add the movie to the caller's watchlist; repeating is harmless").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", WatchlistStatus{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.POST("/{movie-id}/remove_from_watchlist").To(ctl.toggleHandler("remove")).
		Doc("Remove the movie from the caller's watchlist; repeating is harmless").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", WatchlistStatus{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	container.Add(ws)

	wl := new(restful.WebService)
	wl.Path("/api/watchlist").Produces(restful.MIME_JSON)
	wl.Route(wl.GET("").To(ctl.watchlistHandler).
		Doc("Movies on the caller's watchlist").
		Metadata(restfulspec.KeyOpenAPITags, []string{"watchlist"}).
		Writes([]serializers.MovieResponse{}).
		Returns(http.StatusOK, "OK", []serializers.MovieResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}))
	container.Add(wl)
}

func (ctl *MovieController) listHandler(req *restful.Request, resp *restful.Response) {
	actor := auth.ActorFrom(req)
	filter := repositories.MovieFilter{
		Genre: req.QueryParameter("genre"),
		Query: req.QueryParameter("q"),
		Sort:  req.QueryParameter("sort"),
	}
	page := pageFrom(req, ctl.pageSize)

	list, err := ctl.movies.List(req.Request.Context(), actor, filter, page)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	viewer := serializers.Viewer{Actor: actor, Watchlisted: list.Watchlisted}
	writeJSON(resp, http.StatusOK, newPaginated(req.Request, page, list.Total, serializers.Movies(list.Movies, viewer)))
}

func (ctl *MovieController) getHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "movie-id")
	if !ok {
		writeError(resp, http.StatusNotFound, "movie not found")
		return
	}
	actor := auth.ActorFrom(req)
	movie, set, err := ctl.movies.Get(req.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Movie(movie, serializers.Viewer{Actor: actor, Watchlisted: set}))
}

func (ctl *MovieController) createHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.MovieInput)
	if err := readJSON(req, input); err != nil {
		writeError(resp, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.ActorFrom(req)
	movie, err := ctl.movies.Create(req.Request.Context(), actor, input)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	ctl.logger.Info("Movie created", zap.Uint("movie_id", movie.ID), zap.Uint("user_id", actor.UserID))
	// A new movie cannot be on anyone's watchlist yet.
	writeJSON(resp, http.StatusCreated, serializers.Movie(movie, serializers.Viewer{Actor: actor}))
}

func (ctl *MovieController) updateHandler(partial bool) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		id, ok := pathID(req, "movie-id")
		if !ok {
			writeError(resp, http.StatusNotFound, "movie not found")
			return
		}
		input := new(services.MovieInput)
		if err := readJSON(req, input); err != nil {
			writeError(resp, http.StatusBadRequest, err.Error())
			return
		}
		actor := auth.ActorFrom(req)
		movie, set, err := ctl.movies.Update(req.Request.Context(), actor, id, input, partial)
		if err != nil {
			handleServiceError(ctl.logger, req, resp, err)
			return
		}
		writeJSON(resp, http.StatusOK, serializers.Movie(movie, serializers.Viewer{Actor: actor, Watchlisted: set}))
	}
}

func (ctl *MovieController) deleteHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "movie-id")
	if !ok {
		writeError(resp, http.StatusNotFound, "movie not found")
		return
	}
	actor := auth.ActorFrom(req)
	if err := ctl.movies.Delete(req.Request.Context(), actor, id); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	ctl.logger.Info("Movie deleted", zap.Uint("movie_id", id), zap.Uint("user_id", actor.UserID))
	resp.WriteHeader(http.StatusNoContent)
}

func (ctl *MovieController) toggleHandler(op string) restful.RouteFunction {
	toggle := ctl.movies.AddToWatchlist
	if op == "remove" {
		toggle = ctl.movies.RemoveFromWatchlist
	}
	return func(req *restful.Request, resp *restful.Response) {
		id, ok := pathID(req, "movie-id")
		if !ok {
			writeError(resp, http.StatusNotFound, "movie not found")
			return
		}
		in, err := toggle(req.Request.Context(), auth.ActorFrom(req), id)
		if err != nil {
			handleServiceError(ctl.logger, req, resp, err)
			return
		}
		ctl.metrics.Toggle("watchlist", op)
		writeJSON(resp, http.StatusOK, WatchlistStatus{InWatchlist: in})
	}
}

func (ctl *MovieController) watchlistHandler(req *restful.Request, resp *restful.Response) {
	actor := auth.ActorFrom(req)
	list, err := ctl.movies.Watchlist(req.Request.Context(), actor)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Movies(list.Movies, serializers.Viewer{Actor: actor, Watchlisted: list.Watchlisted}))
}
