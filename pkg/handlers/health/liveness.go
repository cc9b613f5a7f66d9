package health

import (
	"net/http"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/gin-gonic/gin"
)

func LivenessGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}

// MakeComponentsGet reports the lifecycle state of every registered component.
func MakeComponentsGet(registry *component.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"components": registry.Statuses(),
		})
	}
}
