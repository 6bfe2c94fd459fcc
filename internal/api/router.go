package api

import (
	"github.com/gin-gonic/gin"

	"github.com/agentmux/agentmux-core/internal/common/logger"
)

// SetupRoutes configures the Orchestration API's HTTP routes. router
// should be the /api/v1 group.
func SetupRoutes(router *gin.RouterGroup, h *Handler, hub *Hub, log *logger.Logger) {
	router.GET("/health", h.Health)

	teams := router.Group("/teams")
	{
		teams.POST("", h.CreateTeam)
		teams.GET("", h.ListTeams)
		teams.GET("/:teamId", h.GetTeam)
		teams.POST("/:teamId/start", h.StartTeam)
		teams.POST("/:teamId/stop", h.StopTeam)
		teams.POST("/:teamId/members/:memberId/start", h.StartTeamMember)
		teams.POST("/:teamId/members/:memberId/stop", h.StopTeamMember)
	}

	projects := router.Group("/projects")
	{
		projects.POST("", h.CreateProject)
		projects.GET("", h.ListProjects)
		projects.GET("/:projectId", h.GetProject)
		projects.POST("/:projectId/teams", h.AssignTeamToProject)
		projects.POST("/:projectId/tasks/next", h.TakeNextTask)
		projects.POST("/:projectId/tasks/sync", h.SyncTaskStatus)
		projects.POST("/:projectId/workflows/:configFile/generate-tasks", h.GenerateTasksFromWorkflow)
		projects.GET("/:projectId/tickets", h.GetTickets)
	}

	tasks := router.Group("/tasks")
	{
		tasks.POST("/assign", h.AssignTask)
		tasks.POST("/:entryId/complete", h.CompleteTask)
		tasks.POST("/:entryId/block", h.BlockTask)
	}

	schedules := router.Group("/schedules")
	{
		schedules.POST("", h.ScheduleMessage)
		schedules.DELETE("/:messageId", h.CancelScheduledMessage)
	}

	agents := router.Group("/agents")
	{
		agents.POST("/register", h.RegisterAgent)
	}

	workflows := router.Group("/workflows")
	{
		workflows.POST("/:configFile/steps/:stepId/retry", h.RetryWorkflowStep)
		workflows.POST("/queue/next", h.TakeQueuedAssignment)
	}

	router.GET("/ws", hub.ServeWS)
}
