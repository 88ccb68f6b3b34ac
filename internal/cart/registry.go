package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xiaodian-next/internal/api"
	"github.com/xiaodian-next/internal/queue"
	"github.com/xiaodian-next/internal/store"
)

// Registry 按用户维护购物车引擎，一个已认证会话一个引擎
type Registry struct {
	mu      sync.Mutex
	engines map[uint]*Engine

	ctx            context.Context
	base           store.Store
	feed           PromoFeed
	submitter      api.Submitter
	queue          *queue.Client
	rootPath       string
	debounceWindow time.Duration
}

// RegistryDeps 注册表依赖
type RegistryDeps struct {
	Store          store.Store
	Feed           PromoFeed
	Submitter      api.Submitter
	Queue          *queue.Client
	RootPath       string
	DebounceWindow time.Duration
}

// NewRegistry 创建注册表；ctx 约束所有引擎订阅的生命周期
func NewRegistry(ctx context.Context, deps RegistryDeps) *Registry {
	return &Registry{
		engines:        map[uint]*Engine{},
		ctx:            ctx,
		base:           deps.Store,
		feed:           deps.Feed,
		submitter:      deps.Submitter,
		queue:          deps.Queue,
		rootPath:       deps.RootPath,
		debounceWindow: deps.DebounceWindow,
	}
}

// Get 取用户的引擎，首次访问时创建并启动订阅
func (r *Registry) Get(userID uint) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[userID]; ok {
		return engine, nil
	}

	engine := NewEngine(Deps{
		Store:          r.base.Namespace(fmt.Sprintf("user:%d", userID)),
		Feed:           r.feed,
		Submitter:      r.submitter,
		Queue:          r.queue,
		UserID:         userID,
		RootPath:       r.rootPath,
		DebounceWindow: r.debounceWindow,
	})
	if err := engine.Start(r.ctx); err != nil {
		return nil, err
	}
	r.engines[userID] = engine
	return engine, nil
}

// Close 关闭全部引擎
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, engine := range r.engines {
		engine.Close()
	}
	r.engines = map[uint]*Engine{}
}
