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

type ItemController struct {
	items   services.ItemService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewItemController(items services.ItemService, m *metrics.Metrics, logger *zap.Logger) *ItemController {
	return &ItemController{items: items, metrics: m, logger: logger}
}

type FavoriteStatus struct {
	OK          bool `json:"ok"`
	IsFavorited bool `json:"is_favorited"`
}

// RegisterRoutes mounts /api/items and /api/favorites.
func (ctl *ItemController) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.Path("/api/items").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"items"}
	idParam := ws.PathParameter("item-id", "Identifier of the item").DataType("integer")

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List items, oldest first").
		Param(ws.QueryParameter("tag", "Tag name, case-insensitive exact match")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]serializers.ItemResponse{}).
		Returns(http.StatusOK, "OK", []serializers.ItemResponse{}))

	ws.Route(ws.POST("").To(ctl.createHandler).
		Doc("Create an item owned by the caller").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.ItemInput{}).
		Returns(http.StatusCreated, "Created", serializers.ItemResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}))

	ws.Route(ws.GET("/{item-id}").To(ctl.getHandler).
		Doc("Get an item").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(serializers.ItemResponse{}).
		Returns(http.StatusOK, "OK", serializers.ItemResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PUT("/{item-id}").To(ctl.updateHandler(false)).
		Doc("Replace an item; owner only").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.ItemInput{}).
		Returns(http.StatusOK, "Updated", serializers.ItemResponse{}).
		Returns(http.StatusForbidden, "Not the owner", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/{item-id}").To(ctl.updateHandler(true)).
		Doc("Update some fields of an item; owner only").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.ItemInput{}).
		Returns(http.StatusOK, "Updated", serializers.ItemResponse{}).
		Returns(http.StatusForbidden, "Not the owner", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/{item-id}").To(ctl.deleteHandler).
		Doc("Delete an item; owner only").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Not the owner", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.POST("/{item-id}/favorite").To(ctl.toggleHandler("add")).
		Doc("Favorite the item; repeating is harmless").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", FavoriteStatus{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	ws.Route(ws.POST("/{item-id}/unfavorite").To(ctl.toggleHandler("remove")).
		Doc("Unfavorite the item; repeating is harmless").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", FavoriteStatus{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	container.Add(ws)

	fav := new(restful.WebService)
	fav.Path("/api/favorites").Produces(restful.MIME_JSON)
	fav.Route(fav.GET("").To(ctl.favoritesHandler).
		Doc("Items the caller has favorited").
		Metadata(restfulspec.KeyOpenAPITags, []string{"favorites"}).
		Writes([]serializers.ItemResponse{}).
		Returns(http.StatusOK, "OK", []serializers.ItemResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}))
	container.Add(fav)
}

func (ctl *ItemController) listHandler(req *restful.Request, resp *restful.Response) {
	actor := auth.ActorFrom(req)
	list, err := ctl.items.List(req.Request.Context(), actor, repositories.ItemFilter{Tag: req.QueryParameter("tag")})
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Items(list.Items, serializers.Viewer{Actor: actor, Favorited: list.Favorited}))
}

func (ctl *ItemController) getHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "item-id")
	if !ok {
		writeError(resp, http.StatusNotFound, "item not found")
		return
	}
	actor := auth.ActorFrom(req)
	item, set, err := ctl.items.Get(req.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Item(item, serializers.Viewer{Actor: actor, Favorited: set}))
}

func (ctl *ItemController) createHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.ItemInput)
	if err := readJSON(req, input); err != nil {
		writeError(resp, http.StatusBadRequest, err.Error())
		return
	}
	actor := auth.ActorFrom(req)
	item, err := ctl.items.Create(req.Request.Context(), actor, input)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	ctl.logger.Info("Item created", zap.Uint("item_id", item.ID), zap.Uint("owner_id", item.OwnerID))
	writeJSON(resp, http.StatusCreated, serializers.Item(item, serializers.Viewer{Actor: actor}))
}

func (ctl *ItemController) updateHandler(partial bool) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		id, ok := pathID(req, "item-id")
		if !ok {
			writeError(resp, http.StatusNotFound, "item not found")
			return
		}
		input := new(services.ItemInput)
		if err := readJSON(req, input); err != nil {
			writeError(resp, http.StatusBadRequest, err.Error())
			return
		}
		actor := auth.ActorFrom(req)
		item, set, err := ctl.items.Update(req.Request.Context(), actor, id, input, partial)
		if err != nil {
			handleServiceError(ctl.logger, req, resp, err)
			return
		}
		writeJSON(resp, http.StatusOK, serializers.Item(item, serializers.Viewer{Actor: actor, Favorited: set}))
	}
}

func (ctl *ItemController) deleteHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "item-id")
	if !ok {
		writeError(resp, http.StatusNotFound, "item not found")
		return
	}
	if err := ctl.items.Delete(req.Request.Context(), auth.ActorFrom(req), id); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}

func (ctl *ItemController) toggleHandler(op string) restful.RouteFunction {
	toggle := ctl.items.Favorite
	if op == "remove" {
		toggle = ctl.items.Unfavorite
	}
	return func(req *restful.Request, resp *restful.Response) {
		id, ok := pathID(req, "item-id")
		if !ok {
			writeError(resp, http.StatusNotFound, "item not found")
			return
		}
		favorited, err := toggle(req.Request.Context(), auth.ActorFrom(req), id)
		if err != nil {
			handleServiceError(ctl.logger, req, resp, err)
			return
		}
		ctl.metrics.Toggle("favorite", op)
		writeJSON(resp, http.StatusOK, FavoriteStatus{OK: true, IsFavorited: favorited})
	}
}

func (ctl *ItemController) favoritesHandler(req *restful.Request, resp *restful.Response) {
	actor := auth.ActorFrom(req)
	list, err := ctl.items.Favorites(req.Request.Context(), actor)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Items(list.Items, serializers.Viewer{Actor: actor, Favorited: list.Favorited}))
}
