package router

import (
	"github.com/xiaodian-next/internal/config"
	publichandlers "github.com/xiaodian-next/internal/http/handlers/public"
	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.ListProducts)
			public.GET("/products/:key", publicHandler.GetProduct)
		}

		// 用户接口（需登录）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.PUT("/cart/items/:key", publicHandler.ChangeCartItemQty)
			user.DELETE("/cart/items/:key", publicHandler.DeleteCartItem)
			user.DELETE("/cart", publicHandler.ClearCart)
			user.POST("/cart/promo", publicHandler.ApplyPromoCode)
			user.DELETE("/cart/promo", publicHandler.RemovePromoCode)
			user.PUT("/cart/client", publicHandler.UpdateClient)
			user.POST("/cart/checkout", publicHandler.Checkout)
		}
	}

	return r
}
