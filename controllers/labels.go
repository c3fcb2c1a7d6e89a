package controllers

import (
	"context"
	"net/http"

	"moviebox-restful/auth"
	"moviebox-restful/models"
	"moviebox-restful/policy"
	"moviebox-restful/serializers"
	"moviebox-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// LabelService is what LabelController needs from a genre or tag service.
type LabelService[T any] interface {
	Noun() string
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, actor policy.Actor, input *services.LabelInput) (*T, error)
	Update(ctx context.Context, actor policy.Actor, id uint, input *services.LabelInput, partial bool) (*T, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
}

type labelPtr[T any] interface {
	*T
	models.Labeled
}

// LabelController serves the plain name lists, /api/genres and /api/tags.
type LabelController[T any, PT labelPtr[T]] struct {
	service LabelService[T]
	root    string
	logger  *zap.Logger
}

func NewGenreController(service LabelService[models.Genre], logger *zap.Logger) *LabelController[models.Genre, *models.Genre] {
	return &LabelController[models.Genre, *models.Genre]{service: service, root: "/api/genres", logger: logger}
}

func NewTagController(service LabelService[models.Tag], logger *zap.Logger) *LabelController[models.Tag, *models.Tag] {
	return &LabelController[models.Tag, *models.Tag]{service: service, root: "/api/tags", logger: logger}
}

func (ctl *LabelController[T, PT]) RegisterRoutes(container *restful.Container) {
	noun := ctl.service.Noun()
	ws := new(restful.WebService)
	ws.Path(ctl.root).Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{noun + "s"}
	idParam := ws.PathParameter("label-id", "Identifier of the "+noun).DataType("integer")

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List "+noun+"s ordered by name").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]serializers.LabelResponse{}).
		Returns(http.StatusOK, "OK", []serializers.LabelResponse{}))

	ws.Route(ws.POST("").To(ctl.createHandler).
		Doc("Create a "+noun).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LabelInput{}).
		Returns(http.StatusCreated, "Created", serializers.LabelResponse{}).
		Returns(http.StatusBadRequest, "Invalid or duplicate name", ErrorResponse{}).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}))

	ws.Route(ws.GET("/{label-id}").To(ctl.getHandler).
		Doc("Get a "+noun).
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "OK", serializers.LabelResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	for _, partial := range []bool{false, true} {
		builder := ws.PUT("/{label-id}").Doc("Rename a " + noun)
		if partial {
			builder = ws.PATCH("/{label-id}").Doc("Rename a " + noun + "; an empty body changes nothing")
		}
		ws.Route(builder.To(ctl.updateHandler(partial)).
			Param(idParam).
			Metadata(restfulspec.KeyOpenAPITags, tags).
			Reads(services.LabelInput{}).
			Returns(http.StatusOK, "Updated", serializers.LabelResponse{}).
			Returns(http.StatusBadRequest, "Invalid or duplicate name", ErrorResponse{}).
			Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
			Returns(http.StatusNotFound, "Not found", ErrorResponse{}))
	}

	ws.Route(ws.DELETE("/{label-id}").To(ctl.deleteHandler).
		Doc("Delete a "+noun+"; tagged entities are kept").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Deleted", nil).
		Returns(http.StatusForbidden, "Not signed in", ErrorResponse{}).
		Returns(http.StatusNotFound, "Not found", ErrorResponse{}))

	container.Add(ws)
}

func (ctl *LabelController[T, PT]) notFound(resp *restful.Response) {
	writeError(resp, http.StatusNotFound, ctl.service.Noun()+" not found")
}

func (ctl *LabelController[T, PT]) listHandler(req *restful.Request, resp *restful.Response) {
	labels, err := ctl.service.List(req.Request.Context())
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	out := make([]serializers.LabelResponse, len(labels))
	for i := range labels {
		out[i] = serializers.Label(PT(&labels[i]))
	}
	writeJSON(resp, http.StatusOK, out)
}

func (ctl *LabelController[T, PT]) getHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "label-id")
	if !ok {
		ctl.notFound(resp)
		return
	}
	label, err := ctl.service.Get(req.Request.Context(), id)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, serializers.Label(PT(label)))
}

func (ctl *LabelController[T, PT]) createHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.LabelInput)
	if err := readJSON(req, input); err != nil {
		writeError(resp, http.StatusBadRequest, err.Error())
		return
	}
	label, err := ctl.service.Create(req.Request.Context(), auth.ActorFrom(req), input)
	if err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	writeJSON(resp, http.StatusCreated, serializers.Label(PT(label)))
}

func (ctl *LabelController[T, PT]) updateHandler(partial bool) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		id, ok := pathID(req, "label-id")
		if !ok {
			ctl.notFound(resp)
			return
		}
		input := new(services.LabelInput)
		if err := readJSON(req, input); err != nil {
			writeError(resp, http.StatusBadRequest, err.Error())
			return
		}
		label, err := ctl.service.Update(req.Request.Context(), auth.ActorFrom(req), id, input, partial)
		if err != nil {
			handleServiceError(ctl.logger, req, resp, err)
			return
		}
		writeJSON(resp, http.StatusOK, serializers.Label(PT(label)))
	}
}

func (ctl *LabelController[T, PT]) deleteHandler(req *restful.Request, resp *restful.Response) {
	id, ok := pathID(req, "label-id")
	if !ok {
		ctl.notFound(resp)
		return
	}
	if err := ctl.service.Delete(req.Request.Context(), auth.ActorFrom(req), id); err != nil {
		handleServiceError(ctl.logger, req, resp, err)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}
