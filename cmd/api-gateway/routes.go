package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
)

type routeConfig struct {
	Prefix    string
	ServeDocs bool
	Tokens    middleware.TokenVerifier
	RateLimit gin.HandlerFunc

	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Courses     *handler.CourseHandler
	Lectures    *handler.LectureHandler
	Quizzes     *handler.QuizHandler
	Attempts    *handler.QuizAttemptHandler
	Enrollments *handler.EnrollmentHandler
	Attendance  *handler.AttendanceHandler
	Ops         *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, rc routeConfig) {
	r.GET("/health", rc.Ops.Health)
	r.GET("/ready", rc.Ops.Ready)
	r.GET("/metrics", rc.Ops.Prometheus)
	if rc.ServeDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := rc.Prefix
	if prefix == "" {
		prefix = "/api"
	}
	api := r.Group(prefix)

	authenticate := middleware.Authenticate(rc.Tokens)
	optional := middleware.OptionalAuthenticate(rc.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if rc.RateLimit == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{rc.RateLimit, h}
	}

	auth := api.Group("/auth")
	auth.POST("/register", limited(rc.Auth.Register)...)
	auth.POST("/login", limited(rc.Auth.Login)...)
	auth.POST("/refresh", limited(rc.Auth.Refresh)...)
	auth.POST("/logout", rc.Auth.Logout)
	auth.GET("/me", authenticate, rc.Auth.Me)

	users := api.Group("/users", authenticate)
	users.GET("", adminOnly, rc.Users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfParam), rc.Users.Get)
	users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfParam), rc.Users.Update)
	users.DELETE("/:id", adminOnly, rc.Users.Delete)

	course := api.Group("/course")
	course.GET("", rc.Courses.ListPublic)
	course.GET("/all", authenticate, adminOnly, rc.Courses.ListAll)
	course.GET("/instructor/:userId", optional, rc.Courses.ListByInstructor)
	course.GET("/:id", optional, rc.Courses.Get)
	course.POST("", authenticate, middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), rc.Courses.Create)
	course.PUT("/:id", authenticate, rc.Courses.Update)
	course.DELETE("/:id", authenticate, rc.Courses.Delete)

	lectures := course.Group("/:id/lectures", authenticate)
	lectures.POST("", rc.Lectures.Create)
	lectures.GET("", rc.Lectures.List)
	lectures.GET("/:lectureId", rc.Lectures.Get)
	lectures.PUT("/:lectureId", rc.Lectures.Update)
	lectures.DELETE("/:lectureId", rc.Lectures.Delete)

	quiz := api.Group("/quiz", authenticate)
	quiz.POST("", rc.Quizzes.Create)
	quiz.GET("/course/:courseId", rc.Quizzes.ListByCourse)
	quiz.GET("/:id", rc.Quizzes.Get)
	quiz.PUT("/:id", rc.Quizzes.Update)
	quiz.DELETE("/:id", rc.Quizzes.Delete)
	quiz.POST("/:id/questions", rc.Quizzes.AddQuestion)
	quiz.GET("/:id/questions", rc.Quizzes.ListQuestions)
	quiz.GET("/:id/questions/:questionId", rc.Quizzes.GetQuestion)
	quiz.PUT("/:id/questions/:questionId", rc.Quizzes.UpdateQuestion)
	quiz.DELETE("/:id/questions/:questionId", rc.Quizzes.DeleteQuestion)

	attempts := api.Group("/quiz-attempt", authenticate)
	attempts.POST("/submit", rc.Attempts.Submit)
	attempts.GET("/quiz/:quizId/mine", rc.Attempts.ListMine)
	attempts.GET("/quiz/:quizId/all", rc.Attempts.ListAll)
	attempts.GET("/:id", rc.Attempts.Get)

	enrollment := api.Group("/enrollment", authenticate)
	enrollment.POST("", rc.Enrollments.Enroll)
	enrollment.POST("/progress", rc.Enrollments.UpdateProgress)
	enrollment.GET("/my-courses", rc.Enrollments.MyCourses)
	enrollment.GET("/course/:courseId/students", rc.Enrollments.CourseStudents)
	enrollment.DELETE("/:id", rc.Enrollments.Unenroll)

	attendance := api.Group("/attendance", authenticate)
	attendance.POST("/mark", rc.Attendance.Mark)
	attendance.GET("/course/:courseId/report", rc.Attendance.Report)
	attendance.GET("/course/:courseId/student/:studentId", rc.Attendance.StudentAttendance)
}
