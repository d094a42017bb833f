package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/handler"
	"github.com/evalio/evalio-api/internal/middleware"
	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/service"
	"github.com/evalio/evalio-api/pkg/config"
	"github.com/evalio/evalio-api/pkg/logger"
	corsmiddleware "github.com/evalio/evalio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/evalio/evalio-api/pkg/middleware/requestid"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Schools     *handler.SchoolHandler
	Classes     *handler.ClassHandler
	Teachers    *handler.TeacherHandler
	Subjects    *handler.SubjectHandler
	Evaluations *handler.EvaluationHandler
	Codes       *handler.AccessCodeHandler
	Submissions *handler.SubmissionHandler
	Metrics     *handler.MetricsHandler
}

// Setup builds the gin engine with all routes mounted.
func Setup(cfg *config.Config, h Handlers, auth *service.AuthService, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)
	{
		// Anonymous student flow. No auth: the access code is the credential.
		public := v1.Group("/public")
		{
			public.POST("/verify", h.Submissions.Verify)
			public.POST("/responses", h.Submissions.Submit)
		}

		v1.POST("/auth/login", h.Auth.Login)

		authorized := v1.Group("")
		authorized.Use(middleware.JWT(auth))
		{
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/register", middleware.RequireRoles(models.RoleAdmin), h.Auth.RegisterDirector)
			authorized.POST("/auth/register/admin", middleware.RequireRoles(models.RoleAdmin), h.Auth.RegisterAdmin)

			schools := authorized.Group("/schools", middleware.RequireRoles(models.RoleAdmin))
			{
				schools.GET("", h.Schools.List)
				schools.GET("/:id", h.Schools.Get)
				schools.POST("", h.Schools.Create)
				schools.PUT("/:id", h.Schools.Update)
				schools.DELETE("/:id", h.Schools.Delete)
			}

			staff := authorized.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleDirector))
			{
				classes := staff.Group("/classes")
				{
					classes.GET("", h.Classes.List)
					classes.GET("/:id", h.Classes.Get)
					classes.POST("", h.Classes.Create)
					classes.PUT("/:id", h.Classes.Update)
					classes.DELETE("/:id", h.Classes.Delete)
					classes.GET("/:id/assignments", h.Classes.Assignments)
					classes.PUT("/:id/assignments", h.Classes.SetAssignments)
				}

				teachers := staff.Group("/teachers")
				{
					teachers.GET("", h.Teachers.List)
					teachers.GET("/:id", h.Teachers.Get)
					teachers.POST("", h.Teachers.Create)
					teachers.PUT("/:id", h.Teachers.Update)
					teachers.DELETE("/:id", h.Teachers.Delete)
				}

				subjects := staff.Group("/subjects")
				{
					subjects.GET("", h.Subjects.List)
					subjects.GET("/:id", h.Subjects.Get)
					subjects.POST("", h.Subjects.Create)
					subjects.PUT("/:id", h.Subjects.Update)
					subjects.DELETE("/:id", h.Subjects.Delete)
				}

				evaluations := staff.Group("/evaluations")
				{
					evaluations.GET("", h.Evaluations.List)
					evaluations.GET("/:id", h.Evaluations.Get)
					evaluations.POST("", h.Evaluations.Create)
					evaluations.PUT("/:id", h.Evaluations.Update)
					evaluations.DELETE("/:id", h.Evaluations.Delete)
					evaluations.GET("/:id/responses", h.Evaluations.Responses)
					evaluations.GET("/:id/stats", h.Evaluations.Stats)
					evaluations.GET("/:id/export/csv", h.Evaluations.ExportCSV)
					evaluations.GET("/:id/export/pdf", h.Evaluations.ExportPDF)
					evaluations.POST("/:id/codes", h.Codes.Generate)
					evaluations.GET("/:id/codes", h.Codes.List)
					evaluations.DELETE("/:id/codes", h.Codes.DeleteForEvaluation)
				}

				staff.DELETE("/codes/:id", h.Codes.Delete)
			}
		}
	}

	return r
}
