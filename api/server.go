package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"aa/adapters/oidc"
	redisAdapter "aa/adapters/redis"
	internalS3 "aa/adapters/s3"
	"aa/adapters/session"
	"aa/adapters/sse"
	"aa/auction"
	"aa/models"
	"aa/policy"
	"aa/realtime"
	"aa/store"
)

type ServerImpl struct {
	oidcProviders map[string]*oidc.Provider
	sseManager    sse.IConnectionManager[realtime.Event]
	s3Operator    *internalS3.Operator
	htmlChecker   *bluemonday.Policy
	redisClient   *redis.Client
	producer      redisAdapter.IProducer[sse.PublishRequest[realtime.Event]]
	consumer      redisAdapter.IConsumer[sse.PublishRequest[realtime.Event]]
	sessionStore  session.IStore
	service       *auction.Service
	gate          *policy.Gate
	store         *store.Store
	db            *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化OIDC提供者
	oidcProviders := make(map[string]*oidc.Provider, len(config.OIDC.Providers))
	for provider, providerConfig := range config.OIDC.Providers {
		oidcProvider, err := oidc.NewProvider(providerConfig.IssuerURL, providerConfig.ClientID, providerConfig.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to initial OIDC provider, provider=%s, err=%w", op, provider, err)
		}
		oidcProviders[provider] = oidcProvider
	}

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewOperator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化事件的生產者與消費者,所有實例透過同一條stream交換事件
	producer, err := redisAdapter.NewProducer[sse.PublishRequest[realtime.Event]](redisClient, config.Redis.StreamKeys.SSE)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create producer, err=%w", op, err)
	}
	consumer, err := redisAdapter.NewConsumer[sse.PublishRequest[realtime.Event]](redisClient, config.Redis.StreamKeys.SSE)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create consumer, err=%w", op, err)
	}

	// 初始化SSE管理器
	sseManager, err := sse.NewConnectionManager[realtime.Event](
		sse.WithLogger[realtime.Event](slog.Default()),
		sse.WithSubscriber(consumer),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sse connection manager, err=%w", op, err)
	}

	// 初始化Session儲存
	sessionStore := redisAdapter.NewStore(
		redisClient,
		redisAdapter.WithStorePrefix(config.Redis.KeyPrefix+"session:"),
		redisAdapter.WithStoreTTL(config.Session.CookieMaxAge),
	)

	dataStore := store.New(db)
	service := auction.NewService(auction.Config{
		DB:        db,
		Store:     dataStore,
		Storage:   s3Operator,
		Publisher: realtime.NewPublisher(producer, slog.Default()),
		LockFor: func(itemID uint) redisAdapter.IAutoRenewMutex {
			lockKey := fmt.Sprintf("%sitem:%d:bid-lock", config.Redis.KeyPrefix, itemID)
			return redisAdapter.NewAutoRenewMutex(redisClient, lockKey)
		},
		Logger: slog.Default(),
	})

	return &ServerImpl{
		oidcProviders: oidcProviders,
		sseManager:    sseManager,
		s3Operator:    s3Operator,
		htmlChecker:   bluemonday.UGCPolicy(),
		redisClient:   redisClient,
		producer:      producer,
		consumer:      consumer,
		sessionStore:  sessionStore,
		service:       service,
		gate:          policy.NewGate(dataStore, slog.Default()),
		store:         dataStore,
		db:            db,
		config:        config,
	}, nil
}

func (impl *ServerImpl) Start() {
	// 啟動producer
	impl.producer.Start()
	// 啟動consumer
	impl.consumer.Start()
	// 啟動sse connection manager
	impl.sseManager.Start()
}

func (impl *ServerImpl) Close() {
	// 關閉consumer
	impl.consumer.Close()
	// 關閉producer
	impl.producer.Close()
	// 關閉sse connection manager
	impl.sseManager.Done()
}

// RegisterHandlers 在router上掛載所有路由與中介層
func (impl *ServerImpl) RegisterHandlers(router *gin.Engine) {
	router.Use(session.GinMiddleware(
		impl.sessionStore,
		session.WithSessionKeyForCookie(impl.config.Session.KeyForCookie),
		session.WithCookieMaxAge(impl.config.Session.CookieMaxAge),
		session.WithCookieHTTPOnly(true),
	))
	router.Use(impl.authMiddleware())

	auth := router.Group("/auth")
	{
		auth.GET("/sso/:provider/login", impl.GetSSOLogin)
		auth.GET("/sso/:provider/callback", impl.GetSSOCallback)
		auth.GET("/logout", impl.GetLogout)
	}

	api := router.Group("/api")
	{
		api.GET("/items", impl.GetItems)
		api.POST("/items", impl.PostItem)
		api.GET("/items/live", impl.GetLive)
		api.GET("/items/:itemId", impl.GetItem)
		api.PUT("/items/:itemId", impl.PutItem)
		api.PATCH("/items/:itemId", impl.PutItem)
		api.DELETE("/items/:itemId", impl.DeleteItem)
		api.GET("/items/:itemId/bids", impl.GetItemBids)
		api.POST("/items/:itemId/bids", impl.PostItemBid)
		api.POST("/items/:itemId/purchase", impl.PostItemPurchase)
		api.POST("/items/:itemId/feature", impl.PostItemFeature)
		api.GET("/items/:itemId/messages", impl.GetItemMessages)

		// 沿用前一代前端的路由名稱
		api.POST("/auction-availability", impl.PostAuctionAvailability)
		api.GET("/bids", impl.GetBids)
		api.GET("/chat", impl.GetChat)
		api.POST("/chat", impl.PostChat)
		api.GET("/check-phone", impl.GetCheckPhoneStatus)
		api.POST("/update-phone", impl.PostPhone)
		api.POST("/realtime", impl.PostRealtime)
		api.POST("/next-live", impl.PostNextLive)

		api.GET("/events/item/:itemId", impl.GetItemEvents)
		api.GET("/events/chat/:itemId", impl.GetChatEvents)
		api.GET("/events/live", impl.GetLiveEvents)

		api.GET("/users", impl.GetUsers)
		api.GET("/users/me", impl.GetMe)
		api.GET("/users/check-phone", impl.GetCheckPhone)
		api.POST("/users/phone", impl.PostPhone)
		api.POST("/users/block", impl.PostUserBlock)
		api.POST("/users/role", impl.PostUserRole)
		api.DELETE("/users/:userId", impl.DeleteUser)
		api.GET("/users/access", impl.GetUserAccess)

		api.GET("/generate-report", impl.GetSalesReport)
	}
}

// 登入使用者在gin context中的key
const contextKeyUserID = "aa-user-id"

// authMiddleware 解析access token並把使用者ID放進請求context,
// token無效時視為未登入而不是錯誤,由各處理器決定是否要求登入
func (impl *ServerImpl) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AccessTokenCookie)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}
		token, err := ParseAndValidateJWT(tokenString, impl.config.Auth.PrivateKey)
		if err != nil {
			slog.Debug("Ignore invalid access token", slog.Any("error", err))
			c.Next()
			return
		}
		c.Set(contextKeyUserID, token.Subject)
		c.Next()
	}
}

// currentUserID 取得登入使用者的ID,第二個回傳值表示是否已登入
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextKeyUserID)
	return userID, userID != ""
}

// requireUser 要求請求必須帶有合法的access token
func (impl *ServerImpl) requireUser(c *gin.Context) (string, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWithError(c, ErrNotAuthenticated)
		return "", false
	}
	return userID, true
}

// requireActiveUser 要求登入且未被封鎖,用於出價、購買等會改變狀態的操作
func (impl *ServerImpl) requireActiveUser(c *gin.Context) (string, bool) {
	userID, ok := impl.requireUser(c)
	if !ok {
		return "", false
	}
	if impl.gate.IsBlocked(c.Request.Context(), userID) {
		abortWithError(c, ErrForbidden)
		return "", false
	}
	return userID, true
}

// requireAdmin 要求登入且目前的角色為管理員。
// 每次都重新查詢資料庫,管理員被降級後立即失去權限
func (impl *ServerImpl) requireAdmin(c *gin.Context) (string, bool) {
	userID, ok := impl.requireUser(c)
	if !ok {
		return "", false
	}
	if !impl.gate.IsAdmin(c.Request.Context(), userID) {
		abortWithError(c, ErrForbidden)
		return "", false
	}
	return userID, true
}

// sanitizeText 清除使用者輸入中的HTML與腳本
func (impl *ServerImpl) sanitizeText(input string) string {
	return strings.TrimSpace(impl.htmlChecker.Sanitize(input))
}

// GetUserAccess 回傳登入使用者對指定頁面的存取決定,
// 前端在導頁前呼叫,被封鎖或資料不全的使用者會拿到導向目標
func (impl *ServerImpl) GetUserAccess(c *gin.Context) {
	userID, ok := impl.requireUser(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		path = "/"
	}
	decision := impl.gate.Check(c.Request.Context(), userID, path)
	c.JSON(http.StatusOK, gin.H{
		"allow":      decision.Allow,
		"redirectTo": decision.RedirectTo,
	})
}
