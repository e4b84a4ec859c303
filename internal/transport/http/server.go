package http

import (
	"context"

	"github.com/gin-gonic/gin"

	appsvc "secondbrain/internal/app"
	"secondbrain/internal/bootstrap"
	mysqlClient "secondbrain/internal/platform/mysql"
	rabbitmqClient "secondbrain/internal/platform/rabbitmq"
	redisClient "secondbrain/internal/platform/redis"
	"secondbrain/internal/transport/http/handler"
	"secondbrain/internal/transport/http/middleware"
)

// Deps is everything the router needs. Nil services leave their routes
// unregistered.
type Deps struct {
	GinMode        string
	AuthEnabled    bool
	JWTSecret      string
	MaxUploadBytes int64

	Health        *handler.HealthHandler
	Ingest        *appsvc.IngestService
	Query         *appsvc.QueryService
	Documents     *appsvc.DocumentService
	Conversations *appsvc.ConversationService
	Auth          *appsvc.AuthService
	Classifier    handler.ImageClassifier
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config

	checks := []handler.Check{{Name: "mysql", Probe: func(ctx context.Context) error {
		return mysqlClient.Ping(ctx, app.MySQL)
	}}}
	if app.Redis != nil {
		checks = append(checks, handler.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx, app.Redis)
		}})
	}
	if app.MQConn != nil {
		checks = append(checks, handler.Check{Name: "rabbitmq", Probe: func(context.Context) error {
			return rabbitmqClient.Healthy(app.MQConn)
		}})
	}

	deps := Deps{
		GinMode:        cfg.App.GinMode,
		AuthEnabled:    cfg.Auth.Enabled,
		JWTSecret:      cfg.Auth.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Health:         handler.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, app.StartedAt, app.DocumentSvc, checks...),
		Ingest:         app.Ingest,
		Query:          app.Query,
		Documents:      app.DocumentSvc,
		Conversations:  app.Conversations,
		Auth:           app.Auth,
	}
	if app.Classifier != nil {
		deps.Classifier = app.Classifier
	}
	return NewEngine(deps)
}

func NewEngine(deps Deps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())
	if deps.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = deps.MaxUploadBytes
	}

	if deps.Health != nil {
		router.GET("/", deps.Health.Check)
		router.GET("/healthz", deps.Health.Check)
	}

	api := router.Group("/api")
	if deps.Auth != nil {
		authHandler := handler.NewAuthHandler(deps.Auth)
		api.POST("/auth/login", authHandler.Login)
	}

	protected := api.Group("")
	if deps.AuthEnabled {
		protected.Use(middleware.AuthJWT(deps.JWTSecret))
	}

	if deps.Ingest != nil {
		ingestHandler := handler.NewIngestHandler(deps.Ingest, deps.MaxUploadBytes)
		ingest := protected.Group("/ingest")
		ingest.POST("/file", ingestHandler.File)
		ingest.POST("/url", ingestHandler.URL)
		ingest.POST("/text", ingestHandler.Text)
	}

	if deps.Query != nil {
		queryHandler := handler.NewQueryHandler(deps.Query)
		protected.POST("/query", queryHandler.Query)
		protected.POST("/query/stream", queryHandler.Stream)
	}

	if deps.Documents != nil {
		documentHandler := handler.NewDocumentHandler(deps.Documents)
		documents := protected.Group("/documents")
		documents.GET("", documentHandler.List)
		documents.GET("/count", documentHandler.Count)
		documents.GET("/:id", documentHandler.Get)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	if deps.Conversations != nil {
		conversationHandler := handler.NewConversationHandler(deps.Conversations)
		conversations := protected.Group("/conversations")
		conversations.POST("", conversationHandler.Create)
		conversations.GET("", conversationHandler.List)
		conversations.GET("/:id/messages", conversationHandler.Messages)
	}

	if deps.Classifier != nil {
		visionHandler := handler.NewVisionHandler(deps.Classifier)
		protected.POST("/vision/classify", visionHandler.Classify)
	}

	return router
}
