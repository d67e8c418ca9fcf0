package httpt

import (
	_ "certalert/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Certification Alert API
// @version         1.0
// @description     Operator API for the certification expiry alert engine
// @BasePath        /
func (h *Handler) setupRoutes() {
	h.router.GET("/health", h.Health)

	v1 := h.router.Group("/api/v1")
	v1.POST("/runs", h.TriggerRun)
	v1.POST("/certifications/:id/reminders", h.SendManualReminder)
	v1.GET("/reminders", h.ListReminders)

	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
