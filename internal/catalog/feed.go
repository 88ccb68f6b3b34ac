// Package catalog 提供促销目录订阅源与商品目录查询。
package catalog

import (
	"context"
	"strconv"
	"sync"

	"github.com/xiaodian-next/internal/constants"
	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/repository"

	"github.com/redis/go-redis/v9"
)

const feedBuffer = 8

// Feed 促销目录订阅源：整表加载促销码指纹，整体替换缓存并推送给订阅者；
// 收到目录变更信号后重新加载。
type Feed struct {
	mu      sync.Mutex
	entries []models.PromoCatalogEntry
	loaded  bool
	subs    map[int]chan []models.PromoCatalogEntry
	nextID  int

	promoRepo repository.PromotionRepository
	signal    *redis.Client
}

// NewFeed 创建目录订阅源；signal 可为 nil（无变更信号，仅初始加载）
func NewFeed(promoRepo repository.PromotionRepository, signal *redis.Client) *Feed {
	return &Feed{
		subs:      map[int]chan []models.PromoCatalogEntry{},
		promoRepo: promoRepo,
		signal:    signal,
	}
}

// Start 初始加载并监听目录变更信号
func (f *Feed) Start(ctx context.Context) error {
	if err := f.Refresh(ctx); err != nil {
		return err
	}
	if f.signal == nil {
		return nil
	}

	pubsub := f.signal.Subscribe(ctx, constants.PromoChangedChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				if err := f.Refresh(ctx); err != nil {
					logger.Warnw("promo_feed_refresh_failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// Refresh 重新加载目录并整体替换缓存
func (f *Feed) Refresh(ctx context.Context) error {
	_ = ctx
	promotions, err := f.promoRepo.ListActive()
	if err != nil {
		return err
	}
	entries := make([]models.PromoCatalogEntry, 0, len(promotions))
	for _, promotion := range promotions {
		entries = append(entries, models.PromoCatalogEntry{
			Key:       strconv.FormatUint(uint64(promotion.ID), 10),
			MatchHash: promotion.MatchHash,
			Unit:      promotion.Unit,
			Value:     promotion.Value,
		})
	}
	f.publish(entries)
	return nil
}

// Subscribe 订阅目录快照；已加载时立刻回放当前快照
func (f *Feed) Subscribe() (<-chan []models.PromoCatalogEntry, func()) {
	ch := make(chan []models.PromoCatalogEntry, feedBuffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.loaded {
		ch <- f.entries
	}
	f.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

func (f *Feed) publish(entries []models.PromoCatalogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	f.loaded = true
	for _, ch := range f.subs {
		select {
		case ch <- entries:
		default:
			logger.Warnw("promo_feed_subscriber_lagging")
		}
	}
}
