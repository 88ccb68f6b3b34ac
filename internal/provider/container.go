package provider

import (
	"context"
	"time"

	"github.com/xiaodian-next/internal/api"
	"github.com/xiaodian-next/internal/cart"
	"github.com/xiaodian-next/internal/catalog"
	"github.com/xiaodian-next/internal/config"
	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/queue"
	"github.com/xiaodian-next/internal/repository"
	"github.com/xiaodian-next/internal/store"

	"github.com/redis/go-redis/v9"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo   repository.ProductRepository
	PromotionRepo repository.PromotionRepository

	// 领域组件
	Store     store.Store
	PromoFeed *catalog.Feed
	Products  *catalog.Products
	Submitter api.Submitter
	Carts     *cart.Registry
}

// NewContainer 初始化容器；ctx 约束目录订阅与购物车引擎的生命周期
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)

	// 2. 初始化响应式存储与目录变更信号
	var signal *redis.Client
	if cfg.Redis.Enabled {
		redisStore, err := store.NewRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.Store = redisStore
		signal = redisStore.Client()
	} else {
		logger.Warnw("provider_redis_disabled", "fallback", "memory_store")
		c.Store = store.NewMemory()
	}

	// 3. 初始化目录
	c.PromoFeed = catalog.NewFeed(c.PromotionRepo, signal)
	if err := c.PromoFeed.Start(ctx); err != nil {
		return nil, err
	}
	c.Products = catalog.NewProducts(c.ProductRepo)

	// 4. 初始化订单接口客户端与购物车引擎注册表
	c.Submitter = api.NewClient(&cfg.OrderAPI)
	c.Carts = cart.NewRegistry(ctx, cart.RegistryDeps{
		Store:          c.Store,
		Feed:           c.PromoFeed,
		Submitter:      c.Submitter,
		Queue:          queueClient,
		RootPath:       cfg.Cart.RootPath,
		DebounceWindow: time.Duration(cfg.Cart.DebounceMS) * time.Millisecond,
	})

	return c, nil
}

// Close 释放容器资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Carts != nil {
		c.Carts.Close()
	}
	if c.QueueClient != nil {
		_ = c.QueueClient.Close()
	}
}
