package console

import (
	"net/http"

	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/gin-gonic/gin"
)

// MakeArmsGet returns the console's latest arm snapshot.
func MakeArmsGet(c *console.Console) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"arms":    c.Snapshot(),
			"teleops": c.Teleops(),
		})
	}
}
