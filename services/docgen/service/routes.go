// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package service

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the docgen API with the router group.
//
// Endpoints:
//
//	POST /v1/docgen/update - Run one pipeline pass
//	POST /v1/docgen/index - Refresh the evidence store
//	GET  /v1/docgen/report - Last persisted run report
//	GET  /v1/docgen/health - Liveness probe
//
// Inputs:
//
//	rg - Gin router group (typically /v1).
//	handlers - The handlers instance.
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	docgen := rg.Group("/docgen")
	{
		docgen.POST("/update", handlers.HandleUpdate)
		docgen.POST("/index", handlers.HandleIndex)
		docgen.GET("/report", handlers.HandleReport)
		docgen.GET("/health", handlers.HandleHealth)
	}
}
