package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-attendance-leave/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-leave/internal/service/attendance"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/service/file"
	geofenceService "github.com/cmlabs-hris/hris-attendance-leave/internal/service/geofence"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/service/leave"
	"github.com/go-chi/httplog/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgresql.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	transactor := postgresql.NewTransactor(db)
	userRepo := postgresql.NewUserRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leavePolicyRepo := postgresql.NewLeavePolicyRepository(db)
	leaveProfileRepo := postgresql.NewLeaveProfileRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	leaveResetHistoryRepo := postgresql.NewLeaveResetHistoryRepository(db)

	sites, err := geofenceService.LoadFile(cfg.Geofence.SitesFile)
	if err != nil {
		return fmt.Errorf("load geofence sites: %w", err)
	}
	slog.Info("Geofence sites loaded", "count", len(sites.Sites()), "file", cfg.Geofence.SitesFile)

	var fileStorage storage.FileStorage
	var uploadsDir string
	switch cfg.Storage.Type {
	case "local":
		local, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("initialize local storage: %w", err)
		}
		fileStorage = local
		uploadsDir = cfg.Storage.BasePath
	case "minio":
		fileStorage, err = storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("initialize minio storage: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}
	fileService := file.NewFileService(fileStorage, cfg.Storage.MaxFileSize)

	jwtService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, sites, attendanceService.Options{
		HalfDayHours:     cfg.Attendance.HalfDayHours,
		AutoApproveAfter: cfg.Attendance.AutoApproveAfter,
		DefaultTimezone:  cfg.App.Timezone,
	})

	calculator := leave.NewBalanceCalculator(leave.ProbationMode(cfg.LeaveReset.ProbationMode))
	policyService := leave.NewPolicyService(transactor, leavePolicyRepo, leaveProfileRepo, userRepo, calculator, time.Now)
	requestService := leave.NewRequestService(transactor, leaveRequestRepo, leaveProfileRepo, leavePolicyRepo, fileService, time.Now)
	resetService, err := leave.NewResetService(transactor, leaveProfileRepo, leavePolicyRepo, leaveResetHistoryRepo, calculator, leave.ResetOptions{
		Concurrency:  cfg.LeaveReset.Concurrency,
		RRule:        cfg.LeaveReset.RRule,
		CarryForward: cfg.LeaveReset.CarryForward,
	})
	if err != nil {
		return fmt.Errorf("initialize reset service: %w", err)
	}
	leaveSvc := leave.NewLeaveService(leaveProfileRepo, leavePolicyRepo, policyService, requestService, resetService)

	scheduler := cron.NewScheduler(ctx)
	cron.NewAttendanceJobs(attendanceSvc, cfg.Attendance.AutoApproveInterval).RegisterJobs(scheduler)
	cron.NewLeaveJobs(leaveSvc, cfg.LeaveReset.CheckInterval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		jwtService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewLeaveHandler(leaveSvc),
		appHTTP.RouterOptions{
			Logger:      httpLogger(cfg.App),
			CORSOrigins: cfg.App.CORSOrigins,
			UploadsDir:  uploadsDir,
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(app.LogLevel)}
	if app.Env == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func httpLogger(app config.AppConfig) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(app.Env == "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       logLevel(app.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance-leave"),
		slog.String("env", app.Env),
	)
}
