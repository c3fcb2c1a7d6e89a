package controllers

import (
	"context"
	"net/http"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHealthController(db *gorm.DB, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, logger: logger}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (ctl *HealthController) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.Path("/healthz").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").To(ctl.healthHandler).
		Doc("Liveness and database reachability").
		Returns(http.StatusOK, "Healthy", HealthResponse{}).
		Returns(http.StatusServiceUnavailable, "Database unreachable", HealthResponse{}))
	container.Add(ws)
}

func (ctl *HealthController) healthHandler(req *restful.Request, resp *restful.Response) {
	ctx, cancel := context.WithTimeout(req.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := ctl.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		ctl.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(resp, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
		return
	}
	writeJSON(resp, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}
