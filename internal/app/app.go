package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"studyplanner_backend/internal/config"
	"studyplanner_backend/internal/controller"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/service"
	"studyplanner_backend/pkg/filewatcher"
	"studyplanner_backend/pkg/logger"
	"studyplanner_backend/pkg/monitoring"
	"studyplanner_backend/pkg/security"
	"studyplanner_backend/pkg/tracing"
)

// reloadDebounce protects against the burst of filesystem events a single
// artifact replacement produces.
const reloadDebounce = 2 * time.Second

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	services *services
	tracer   *sdktrace.TracerProvider
}

type repositories struct {
	tables    *repository.TableRepository
	artifacts *repository.ArtifactRepository
}

type services struct {
	feature    *service.FeatureService
	training   *service.TrainingService
	prediction *service.PredictionService
	canvas     *service.CanvasService
}

type controllers struct {
	schedule *controller.ScheduleController
	dataset  *controller.DatasetController
	course   *controller.CourseController
	health   *controller.HealthController
}

func (a *App) initRepositories(cfg *config.Config) *repositories {
	return &repositories{
		tables:    repository.NewTableRepository(),
		artifacts: repository.NewArtifactRepository(cfg.Paths.ModelDir),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	outputPath := filepath.Join(cfg.Paths.TrainingDataDir, cfg.Training.DatasetCandidates[0])

	return &services{
		feature: service.NewFeatureService(repos.tables, repos.artifacts, cfg.Paths.RawDataDir, outputPath),
		training: service.NewTrainingService(
			repos.tables,
			repos.artifacts,
			cfg.DatasetPaths(),
			cfg.Training.Seed,
			cfg.Training.Estimators,
			cfg.Training.MaxDepth,
		),
		prediction: service.NewPredictionService(repos.artifacts),
		canvas:     service.NewCanvasService(cfg.Canvas),
	}
}

func (a *App) initControllers(s *services, repos *repositories) *controllers {
	return &controllers{
		schedule: controller.NewScheduleController(s.training, s.prediction, repos.artifacts),
		dataset:  controller.NewDatasetController(s.feature),
		course:   controller.NewCourseController(s.canvas),
		health:   controller.NewHealthController(s.prediction, repos.artifacts),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchModelArtifact reloads the prediction service whenever the artifact on
// disk is replaced, so an out-of-process training run takes effect without a
// manual reload call.
func (a *App) watchModelArtifact(repos *repositories, s *services) {
	go func() {
		err := filewatcher.Watch(repos.artifacts.ModelPath(), reloadDebounce, func() {
			if _, err := s.prediction.LoadModel(); err != nil {
				logger.Log.Warn("Automatic model reload failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Log.Error("Model artifact watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	app := &App{Config: cfg}

	repos := app.initRepositories(cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, repos)

	if cfg.BuildDatasetOnStart {
		result, err := services.feature.BuildDataset()
		if err != nil {
			logger.Log.Fatal("Dataset build failed", zap.Error(err))
		}
		logger.Log.Info("Dataset build finished",
			zap.Int("rows", result.Rows),
			zap.String("output", result.OutputPath))
	}

	if cfg.TrainOnStart {
		if _, err := services.training.Train(); err != nil {
			logger.Log.Fatal("Startup training failed", zap.Error(err))
		}
	}

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("studyplanner-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers)

	// Load whatever artifact is already on disk; a missing model is normal
	// on first boot and only disables the predict endpoint.
	if _, err := services.prediction.LoadModel(); err != nil {
		logger.Log.Warn("No model loaded at startup", zap.Error(err))
	}

	app.watchModelArtifact(repos, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
