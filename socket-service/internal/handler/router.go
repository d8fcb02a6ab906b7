package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	pkglog "github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/middleware"
)

// RouteRegistrar is implemented by every component that mounts HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

type RouterConfig struct {
	Logger         zerolog.Logger
	FrontendOrigin string
	Gatherer       prometheus.Gatherer
}

// NewRouter builds the gin engine with the shared middleware chain, the ops
// endpoints and every registrar's routes.
func NewRouter(cfg RouterConfig, registrars ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	for _, reg := range registrars {
		reg.RegisterRoutes(r)
	}
	return r
}
