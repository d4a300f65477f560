package v1

import "github.com/gin-gonic/gin"

// CatalogRouteHandler is the route surface every catalog handler exposes.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetDeletionMark(c *gin.Context)
}

// RegisterCatalogReadRoutes mounts catalog read endpoints on a group.
func RegisterCatalogReadRoutes(group *gin.RouterGroup, h CatalogRouteHandler) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
}

// RegisterCatalogWriteRoutes mounts catalog mutation endpoints on a group.
func RegisterCatalogWriteRoutes(group *gin.RouterGroup, h CatalogRouteHandler) {
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.POST("/:id/deletion-mark", h.SetDeletionMark)
}

// RequestRouteHandler is the route surface every request handler exposes.
type RequestRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Transition(c *gin.Context)
}

// RegisterRequestReadRoutes mounts request read endpoints on a group.
func RegisterRequestReadRoutes(group *gin.RouterGroup, h RequestRouteHandler) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
}

// RegisterRequestWriteRoutes mounts request mutation endpoints plus the
// workflow transition endpoint on a group.
func RegisterRequestWriteRoutes(group *gin.RouterGroup, h RequestRouteHandler) {
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.POST("/:id/transition", h.Transition)
}
