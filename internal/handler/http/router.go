package http

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// UploadsDir is served under /uploads when documents are stored on local disk.
	UploadsDir string
}

func NewRouter(jwtService jwt.Service, attendanceHandler AttendanceHandler, leaveHandler LeaveHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	if opts.UploadsDir != "" {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Handle("/uploads/*", documentServer(opts.UploadsDir))
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
		r.Use(middleware.AuthRequired)

		r.Route("/attendance", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceCreate))
				r.Post("/clock-in", attendanceHandler.ClockIn)
				r.Post("/clock-out", attendanceHandler.ClockOut)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
				r.Get("/my", attendanceHandler.GetMyAttendance)
				r.Get("/{id}", attendanceHandler.Get)
			})

			r.With(middleware.RequirePermission(user.PermissionAttendanceApprove)).Put("/approve", attendanceHandler.Approve)
			r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", attendanceHandler.List)
		})

		r.Route("/leave", func(r chi.Router) {
			r.With(middleware.RequirePermission(user.PermissionLeaveCreate)).Post("/add", leaveHandler.CreateRequest)
			r.With(middleware.RequirePermission(user.PermissionLeaveViewOwn)).Get("/my", leaveHandler.GetMyRequests)
			r.With(middleware.RequirePermission(user.PermissionLeaveViewAll)).Get("/", leaveHandler.ListRequests)

			r.Route("/balance", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLeaveBalanceReset)).Post("/reset", leaveHandler.ResetBalances)
				r.With(middleware.RequireAdmin).Get("/reset/history", leaveHandler.ListResetHistory)
				r.With(middleware.RequirePermission(user.PermissionLeaveViewOwn)).Get("/{userId}", leaveHandler.GetBalance)
			})

			r.Route("/policy", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionLeavePolicyManage))
				r.Post("/", leaveHandler.CreatePolicy)
				r.Get("/", leaveHandler.ListPolicies)
				r.Get("/{id}", leaveHandler.GetPolicy)
				r.Put("/{id}", leaveHandler.UpdatePolicy)
				r.Delete("/{id}", leaveHandler.DeletePolicy)
				r.Post("/{id}/assign", leaveHandler.AssignPolicy)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLeaveViewOwn)).Get("/", leaveHandler.GetRequest)
				r.With(middleware.RequirePermission(user.PermissionLeaveCreate)).Post("/cancel", leaveHandler.CancelRequest)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionLeaveApprove))
					r.Post("/approve", leaveHandler.ApproveRequest)
					r.Post("/reject", leaveHandler.RejectRequest)
				})
			})
		})
	})

	return r
}

// documentServer serves stored leave documents to their uploader and to approvers.
func documentServer(dir string) http.Handler {
	files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			response.HandleError(w, user.ErrUnauthenticated)
			return
		}

		// leave/{userId}/{file}
		parts := strings.SplitN(strings.TrimPrefix(path.Clean(r.URL.Path), "/uploads/"), "/", 3)
		if len(parts) != 3 || parts[0] != "leave" || parts[2] == "" || !identity.CanActFor(parts[1]) {
			response.HandleError(w, user.ErrInsufficientPermissions)
			return
		}

		files.ServeHTTP(w, r)
	})
}
