package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ai-chatbot-go/internal/config"
	"ai-chatbot-go/internal/handler"
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/migration"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/internal/tools"
	"ai-chatbot-go/pkg/cache"
	"ai-chatbot-go/pkg/database"
	"ai-chatbot-go/pkg/jokeapi"
	"ai-chatbot-go/pkg/kafka"
	"ai-chatbot-go/pkg/llm"
	"ai-chatbot-go/pkg/log"
	"ai-chatbot-go/pkg/metrics"
	"ai-chatbot-go/pkg/ratelimit"
	"ai-chatbot-go/pkg/storage"
	"ai-chatbot-go/pkg/token"
	"ai-chatbot-go/pkg/weather"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), config.Conf)
	},
}

// handlers 汇总路由需要的全部控制器。
type handlers struct {
	users    *handler.UserHandler
	auth     *handler.AuthHandler
	chat     *handler.ChatHandler
	joke     *handler.JokeHandler
	history  *handler.HistoryHandler
	vote     *handler.VoteHandler
	document *handler.DocumentHandler
	upload   *handler.UploadHandler
}

func runServe(ctx context.Context, cfg config.Config) error {
	log.Info("日志记录器初始化成功")

	// 1. 初始化数据库和 Redis
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	if err := migration.AutoMigrate(database.DB); err != nil {
		return err
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	var objects service.ObjectStore
	store, err := storage.NewStore(ctx, cfg.MinIO)
	if err != nil {
		log.Error("MinIO 初始化失败，附件上传不可用", err)
	} else if store != nil {
		objects = store
	}

	var events service.EventPublisher
	publisher := kafka.NewPublisher(cfg.Kafka)
	if publisher != nil {
		events = publisher
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("关闭 Kafka 生产者失败", err)
			}
		}()
	}

	// 2. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	chatRepo := repository.NewChatRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	voteRepo := repository.NewVoteRepository(database.DB)
	documentRepo := repository.NewDocumentRepository(database.DB)

	// 3. 初始化外部客户端和 Service
	responses := cache.New(database.RDB, cfg.Cache.DefaultTTL)
	limiter := ratelimit.New(database.RDB, cfg.RateLimit.Prefix)
	limiter.Production = cfg.Server.IsProduction()
	llmClient := llm.NewClient(cfg.LLM)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)

	jokeService := service.NewJokeService(jokeapi.NewClient(cfg.Joke.BaseURL, cfg.Joke.Timeout), cfg.Joke.CacheTTL)
	registry := tools.NewRegistry(
		tools.NewWeatherTool(weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout), responses, cfg.Weather.CacheTTL),
		tools.NewJokeTool(jokeService),
		tools.NewCreateDocumentTool(llmClient, documentRepo),
		tools.NewUpdateDocumentTool(llmClient, documentRepo),
		tools.NewRequestSuggestionsTool(llmClient, documentRepo),
	)

	userService := service.NewUserService(userRepo, jwtManager, database.RDB)
	chatService := service.NewChatService(chatRepo, messageRepo, llmClient, registry, responses, events, service.ChatOptions{
		MaxSteps:    cfg.Chat.MaxSteps,
		SmoothDelay: cfg.Chat.SmoothDelay,
	})

	h := handlers{
		users:    handler.NewUserHandler(userService),
		auth:     handler.NewAuthHandler(userService),
		chat:     handler.NewChatHandler(chatService, cfg.Server.MaxDuration),
		joke:     handler.NewJokeHandler(jokeService, limiter, ratelimit.Rule{Name: "joke", Limit: cfg.RateLimit.Joke.Limit, Window: cfg.RateLimit.Joke.Window}),
		history:  handler.NewHistoryHandler(service.NewHistoryService(chatRepo, responses, cfg.Cache.HistoryTTL)),
		vote:     handler.NewVoteHandler(service.NewVoteService(chatRepo, voteRepo)),
		document: handler.NewDocumentHandler(service.NewDocumentService(documentRepo)),
		upload:   handler.NewUploadHandler(service.NewUploadService(objects)),
	}

	// 4. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimitByIP(limiter, ratelimit.Rule{Name: "global", Limit: cfg.RateLimit.Global.Limit, Window: cfg.RateLimit.Global.Window}))
	}
	api.Use(middleware.Session(userService))
	registerRoutes(api, h)

	// 5. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务监听失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.MaxDuration+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
	}
	log.Info("服务已优雅关闭")
	return nil
}

func registerRoutes(api *gin.RouterGroup, h handlers) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.users.Register)
		auth.POST("/login", h.users.Login)
		auth.POST("/refresh", h.auth.RefreshToken)

		authed := auth.Group("/", middleware.RequireAuth())
		authed.GET("/me", h.users.GetProfile)
		authed.POST("/logout", h.users.Logout)
	}

	// 聊天接口自己处理未登录，返回纯文本 401
	api.POST("/chat", h.chat.Chat)
	api.DELETE("/chat", h.chat.Delete)
	api.GET("/chat/ws", h.chat.WebSocket)
	api.GET("/chat/:id/messages", h.chat.Messages)

	api.GET("/joke", h.joke.Get)

	authed := api.Group("/", middleware.RequireAuth())
	{
		authed.GET("/history", h.history.List)
		authed.GET("/vote", h.vote.List)
		authed.PATCH("/vote", h.vote.Vote)
		authed.GET("/document", h.document.Versions)
		authed.GET("/suggestions", h.document.Suggestions)
		authed.PATCH("/chat/:id/visibility", h.chat.UpdateVisibility)
		authed.POST("/files/upload", h.upload.Upload)
	}
}
