package controllers

import (
	"net/http"

	"moviebox-restful/repositories"
	"moviebox-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

type StatsController struct {
	movies services.MovieService
	items  services.ItemService
	logger *zap.Logger
}

func NewStatsController(movies services.MovieService, items services.ItemService, logger *zap.Logger) *StatsController {
	return &StatsController{movies: movies, items: items, logger: logger}
}

type GenreStatsResponse struct {
	ByGenre []repositories.LabelCount `json:"by_genre"`
}

type TagStatsResponse struct {
	ByTag []repositories.LabelCount `json:"by_tag"`
}

func (ctl *StatsController) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.Path("/api/stats").Produces(restful.MIME_JSON)
	tags := []string{"stats"}

	ws.Route(ws.GET("").To(ctl.genresHandler).
		Doc("Movie count per genre, including empty genres").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", GenreStatsResponse{}))

	ws.Route(ws.GET("/tags").To(ctl.tagsHandler).
		Doc("Item count per tag, including empty tags").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", TagStatsResponse{}))

	container.Add(ws)
}

func (ctl *StatsController) genresHandler(req *restful.Request, resp *restful.Response) {
	stats, err := ctl.movies.Stats(req.Request.Context())
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, GenreStatsResponse{ByGenre: stats})
}

func (ctl *StatsController) tagsHandler(req *restful.Request, resp *restful.Response) {
	stats, err := ctl.items.Stats(req.Request.Context())
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, TagStatsResponse{ByTag: stats})
}
