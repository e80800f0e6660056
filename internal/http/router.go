package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placehub/internal/auth"
	"github.com/placehub/placehub/internal/config"
	"github.com/placehub/placehub/internal/geocode"
	"github.com/placehub/placehub/internal/http/handlers"
	"github.com/placehub/placehub/internal/http/middlewares"
	"github.com/placehub/placehub/internal/observability"
	"github.com/placehub/placehub/internal/repo/postgres"
	"github.com/placehub/placehub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Cfg     config.Config
	Log     *slog.Logger
	Pool    *pgxpool.Pool
	Images  *storage.FileStore
	Queue   handlers.CleanupEnqueuer
	PromReg *prometheus.Registry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("placehub-api"))
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.Cfg.MaxUploadBytes))

	var prom *observability.Prom

	if deps.PromReg != nil {
		prom = observability.NewProm(deps.PromReg)
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromReg, promhttp.HandlerOpts{})))
	}

	// health

	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up repositories and services

	usersRepo := postgres.NewUsersRepo(deps.Pool, prom)
	placesRepo := postgres.NewPlacesRepo(deps.Pool, prom)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, time.Duration(deps.Cfg.JWTAccessTTLMinutes)*time.Minute)
	geocoder := geocode.NewClient(deps.Cfg.GeocoderBaseURL, deps.Cfg.GeocoderAPIKey)

	usersHandler := handlers.NewUsersHandler(usersRepo, usersRepo, usersRepo, jwtManager, deps.Images)
	placesHandler := handlers.NewPlacesHandler(placesRepo, geocoder, deps.Images, deps.Queue, deps.Log)

	authMw := middlewares.NewAuthMiddleware(jwtManager)

	// stored images are served straight from disk
	r.Static("/uploads/images", deps.Images.Root())

	// public routes

	r.GET("/places/:id", placesHandler.GetPlaceByID)
	r.GET("/users", usersHandler.ListUsers)
	r.GET("/users/:uid/places", placesHandler.ListPlacesByUser)
	r.POST("/users/signup", usersHandler.SignUp)
	r.POST("/users/login", usersHandler.Login)

	// place mutations require a bearer token

	protected := r.Group("/places")
	protected.Use(authMw.RequireAuth())
	protected.POST("", placesHandler.CreatePlace)
	protected.PATCH("/:id", placesHandler.UpdatePlace)
	protected.DELETE("/:id", placesHandler.DeletePlace)

	return r
}
