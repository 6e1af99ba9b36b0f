package runtime

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the run entry point surface:
//
//	POST /workflows/:definition/runs  start a run, returns the workflow id
//	GET  /runs/:id                    current status of a run
func RegisterRoutes(g *gin.Engine, app *App, l *slog.Logger) {
	g.POST("/workflows/:definition/runs", handleStart(app, l))
	g.GET("/runs/:id", handleStatus(app))
}

func handleStart(app *App, l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		definitionID := c.Param("definition")

		input := map[string]any{}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body: " + err.Error()})
				return
			}
		}

		id, err := app.Start(c.Request.Context(), definitionID, input)
		if err != nil {
			status := http.StatusInternalServerError
			if we, ok := AsWorkflowError(err); ok && we.Code == CodeWorkflowNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"message": err.Error()})
			return
		}

		l.Info("run started", "definition", definitionID, "workflow_id", string(id))
		c.JSON(http.StatusAccepted, gin.H{"workflow_id": string(id)})
	}
}

func handleStatus(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := app.Status(WorkflowID(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
