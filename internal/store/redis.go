package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaodian-next/internal/config"
	"github.com/xiaodian-next/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 Redis 的实现：每个文档键存一份 JSON 文档，
// 变更后整体发布到对应频道供订阅端接收。
// 读改写在进程内串行化；多实例部署时需将 Update 换成服务端脚本。
type RedisStore struct {
	client *redis.Client
	prefix string
	ns     string
	mu     *sync.Mutex
}

// NewRedis 创建 Redis 存储
func NewRedis(cfg *config.RedisConfig) (*RedisStore, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("redis disabled")
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "xd"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		prefix: prefix,
		mu:     &sync.Mutex{},
	}, nil
}

// Client 暴露底层客户端（目录变更信号复用同一连接）
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Namespace 返回键空间隔离的派生存储
func (s *RedisStore) Namespace(ns string) Store {
	return &RedisStore{
		client: s.client,
		prefix: s.prefix,
		ns:     joinNamespace(s.ns, ns),
		mu:     s.mu,
	}
}

// Subscribe 订阅路径，先回放当前值，之后推送每次文档变更后的路径值
func (s *RedisStore) Subscribe(ctx context.Context, path string) (<-chan json.RawMessage, func(), error) {
	root, segments := splitPath(path)
	key := s.docKey(root)

	pubsub := s.client.Subscribe(ctx, s.changeChannel(key))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan json.RawMessage, subscriberBuffer)

	initial, err := s.loadDoc(ctx, key)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}
	out <- marshalValue(valueAt(initial, segments))

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = pubsub.Close()
			close(done)
		})
	}

	go func() {
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var doc map[string]interface{}
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					logger.Warnw("store_change_payload_invalid", "doc", key, "error", err)
					continue
				}
				select {
				case out <- marshalValue(valueAt(doc, segments)):
				default:
					logger.Warnw("store_subscriber_lagging", "doc", key)
				}
			}
		}
	}()

	return out, unsubscribe, nil
}

// Update 套用一组路径更新，逐文档读改写后发布变更
func (s *RedisStore) Update(ctx context.Context, updates map[string]interface{}) error {
	grouped := map[string]map[string]interface{}{}
	for path, value := range updates {
		root, _ := splitPath(path)
		key := s.docKey(root)
		if grouped[key] == nil {
			grouped[key] = map[string]interface{}{}
		}
		grouped[key][path] = value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, docUpdates := range grouped {
		doc, err := s.loadDoc(ctx, key)
		if err != nil {
			return err
		}
		for path, value := range docUpdates {
			_, segments := splitPath(path)
			doc = applyToDoc(doc, segments, value)
		}

		if doc == nil {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return err
			}
		} else {
			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
				return err
			}
		}

		payload := marshalValue(doc)
		if err := s.client.Publish(ctx, s.changeChannel(key), string(payload)).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) loadDoc(ctx context.Context, key string) (map[string]interface{}, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *RedisStore) docKey(root string) string {
	return joinNamespace(s.prefix, s.ns, root)
}

func (s *RedisStore) changeChannel(docKey string) string {
	return docKey + ":changed"
}
