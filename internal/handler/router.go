package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/middleware"
	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/repository"
	"github.com/eesa/eesa-api/internal/service"
)

// Router bundles every handler plus the dependencies route middleware needs.
type Router struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Students    *StudentHandler
	Faculty     *FacultyHandler
	Subjects    *SubjectHandler
	Grants      *GrantHandler
	Attendance  *AttendanceHandler
	Marks       *MarkHandler
	Assignments *AssignmentHandler
	Materials   *MaterialHandler
	Notes       *NoteHandler
	Events      *EventHandler
	Uploads     *UploadHandler

	AuthService *service.AuthService
	UserRepo    *repository.UserRepository
}

// Register mounts all API routes under the given group. Public routes come
// first; everything else sits behind the JWT middleware, with role gates on
// the admin-only groups. Fine-grained ownership checks live in the services.
func (rt *Router) Register(api *gin.RouterGroup) {
	requireAuth := middleware.JWT(rt.AuthService)
	optionalAuth := middleware.OptionalJWT(rt.AuthService)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)

	auth := api.Group("/auth")
	{
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/refresh", rt.Auth.Refresh)
		auth.POST("/logout", requireAuth, rt.Auth.Logout)
		auth.PUT("/password", requireAuth, rt.Auth.ChangePassword)
	}

	// Public surface: approved notes, events and the project showcase.
	// OptionalJWT lets signed-in callers keep their widened note visibility.
	api.GET("/notes", optionalAuth, rt.Notes.List)
	api.GET("/notes/:id", optionalAuth, rt.Notes.Get)
	api.GET("/events", rt.Events.ListEvents)
	api.GET("/events/:id", rt.Events.GetEvent)
	api.GET("/projects", rt.Events.ListProjects)
	api.GET("/projects/:id", rt.Events.GetProject)
	api.GET("/files/download", rt.Uploads.Download)

	users := api.Group("/users", requireAuth, adminOnly)
	{
		users.GET("", rt.Users.List)
		users.GET("/:id", rt.Users.Get)
		users.PUT("/:id", middleware.Audit(rt.UserRepo, models.AuditActionUpdate, "user"), rt.Users.Update)
		users.POST("/students", middleware.Audit(rt.UserRepo, models.AuditActionCreate, "user"), rt.Users.RegisterStudent)
		users.POST("/faculty", middleware.Audit(rt.UserRepo, models.AuditActionCreate, "user"), rt.Users.RegisterFaculty)
	}

	students := api.Group("/students", requireAuth)
	{
		students.GET("", rt.Students.List)
		students.GET("/me", rt.Students.Me)
		students.GET("/:id", rt.Students.Get)
		students.PUT("/:id", rt.Students.Update)
		students.DELETE("/:id", adminOnly, rt.Students.Deactivate)
		students.POST("/import", adminOnly, rt.Students.ImportRoster)
		students.GET("/import/template", adminOnly, rt.Students.RosterTemplate)
		students.GET("/export", staffOnly, rt.Students.ExportRoster)
	}

	faculty := api.Group("/faculty", requireAuth)
	{
		faculty.GET("", rt.Faculty.List)
		faculty.GET("/me", rt.Faculty.Me)
		faculty.GET("/:id", rt.Faculty.Get)
		faculty.PUT("/:id", rt.Faculty.Update)
	}

	subjects := api.Group("/subjects", requireAuth)
	{
		subjects.GET("", rt.Subjects.List)
		subjects.GET("/:id", rt.Subjects.Get)
		subjects.POST("", adminOnly, rt.Subjects.Create)
		subjects.PUT("/:id", adminOnly, rt.Subjects.Update)
		subjects.DELETE("/:id", adminOnly, rt.Subjects.Delete)
	}

	grants := api.Group("/grants", requireAuth)
	{
		grants.GET("", rt.Grants.List)
		grants.POST("", adminOnly, middleware.Audit(rt.UserRepo, models.AuditActionCreate, "faculty_subject"), rt.Grants.Create)
		grants.DELETE("/:id", adminOnly, middleware.Audit(rt.UserRepo, models.AuditActionDelete, "faculty_subject"), rt.Grants.Delete)
	}

	attendance := api.Group("/attendance", requireAuth)
	{
		attendance.POST("/bulk", staffOnly, rt.Attendance.Bulk)
		attendance.GET("", rt.Attendance.List)
		attendance.GET("/summary/:id", rt.Attendance.Summary)
		attendance.PUT("/:id", staffOnly, rt.Attendance.Update)
		attendance.DELETE("/:id", staffOnly, rt.Attendance.Delete)
	}

	marks := api.Group("/marks", requireAuth)
	{
		marks.POST("/bulk", staffOnly, rt.Marks.Bulk)
		marks.GET("", rt.Marks.List)
		marks.GET("/report", staffOnly, rt.Marks.Report)
		marks.PUT("/:id", staffOnly, rt.Marks.Update)
		marks.DELETE("/:id", staffOnly, rt.Marks.Delete)
	}

	assignments := api.Group("/assignments", requireAuth)
	{
		assignments.GET("", rt.Assignments.List)
		assignments.POST("", staffOnly, rt.Assignments.Create)
		assignments.GET("/submissions", rt.Assignments.ListSubmissions)
		assignments.POST("/submissions", rt.Assignments.Submit)
		assignments.PUT("/submissions/:id/review", staffOnly, rt.Assignments.ReviewSubmission)
		assignments.DELETE("/submissions/:id", rt.Assignments.DeleteSubmission)
		assignments.GET("/:id", rt.Assignments.Get)
		assignments.PUT("/:id", staffOnly, rt.Assignments.Update)
		assignments.DELETE("/:id", staffOnly, rt.Assignments.Delete)
	}

	materials := api.Group("/materials", requireAuth)
	{
		materials.GET("", rt.Materials.List)
		materials.GET("/:id", rt.Materials.Get)
		materials.POST("", staffOnly, rt.Materials.Create)
		materials.PUT("/:id", staffOnly, rt.Materials.Update)
		materials.DELETE("/:id", staffOnly, rt.Materials.Delete)
	}

	notes := api.Group("/notes", requireAuth)
	{
		notes.POST("", rt.Notes.Create)
		notes.PUT("/:id", rt.Notes.Update)
		notes.PUT("/:id/review", staffOnly, rt.Notes.Review)
		notes.DELETE("/:id", rt.Notes.Delete)
	}

	events := api.Group("/events", requireAuth)
	{
		events.POST("", rt.Events.CreateEvent)
		events.PUT("/:id", rt.Events.UpdateEvent)
		events.DELETE("/:id", rt.Events.DeleteEvent)
	}

	projects := api.Group("/projects", requireAuth)
	{
		projects.POST("", rt.Events.CreateProject)
		projects.PUT("/:id", rt.Events.UpdateProject)
		projects.DELETE("/:id", rt.Events.DeleteProject)
	}

	api.POST("/files", requireAuth, rt.Uploads.Upload)
}
