package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

type handlers struct {
	auth      *handler.AuthHandler
	users     *handler.UserHandler
	classes   *handler.ClassHandler
	students  *handler.StudentHandler
	subjects  *handler.SubjectHandler
	grades    *handler.GradeHandler
	imports   *handler.ImportHandler
	bulletins *handler.BulletinHandler
	dashboard *handler.DashboardHandler
}

func registerRoutes(api *gin.RouterGroup, h handlers, auth gin.HandlerFunc) {
	api.POST("/accounts", h.auth.Signup)
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/password/forgot", h.auth.ForgotPassword)
	api.POST("/auth/password/reset", h.auth.ResetPassword)
	api.GET("/bulletins/archive/:token", h.bulletins.DownloadArchive)

	secured := api.Group("")
	secured.Use(auth)
	secured.POST("/auth/password/change", h.auth.ChangePassword)

	admin := internalmiddleware.RequireRoles(models.RoleAdmin)
	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	secured.GET("/dashboard", staff, h.dashboard.Summary)

	users := secured.Group("/users", admin)
	users.GET("", h.users.List)
	users.POST("/teachers", h.users.CreateTeacher)

	classes := secured.Group("/classes")
	classes.GET("", staff, h.classes.List)
	classes.GET("/:id", staff, h.classes.Get)
	classes.POST("", admin, h.classes.Create)
	classes.PUT("/:id", admin, h.classes.Update)
	classes.DELETE("/:id", admin, h.classes.Delete)

	students := secured.Group("/students")
	students.GET("", staff, h.students.List)
	students.GET("/:id", staff, h.students.Get)
	students.POST("", admin, h.students.Create)
	students.PUT("/:id", admin, h.students.Update)
	students.DELETE("/:id", admin, h.students.Delete)

	subjects := secured.Group("/subjects")
	subjects.GET("", staff, h.subjects.List)
	subjects.POST("", admin, h.subjects.Create)
	subjects.PUT("/:id", admin, h.subjects.Update)
	subjects.DELETE("/:id", admin, h.subjects.Delete)

	grades := secured.Group("/grades", staff)
	grades.GET("", h.grades.List)
	grades.POST("", h.grades.Create)
	grades.POST("/bulk", h.grades.Bulk)
	grades.PUT("/:id", h.grades.Update)
	grades.DELETE("/:id", h.grades.Delete)

	secured.POST("/imports/:kind", admin, h.imports.Import)

	bulletins := secured.Group("/bulletins", staff)
	bulletins.POST("/generate", h.bulletins.Generate)
	bulletins.GET("", h.bulletins.List)
	bulletins.PATCH("/:id/appreciation", h.bulletins.SetAppreciation)
}
