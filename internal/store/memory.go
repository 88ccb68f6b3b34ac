package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xiaodian-next/internal/logger"
)

const subscriberBuffer = 64

type memorySub struct {
	segments []string
	ch       chan json.RawMessage
}

type memoryShared struct {
	mu     sync.Mutex
	docs   map[string]map[string]interface{}
	subs   map[string]map[int]*memorySub
	nextID int
}

// MemoryStore 进程内存储实现，用于未启用 Redis 的部署和测试
type MemoryStore struct {
	shared *memoryShared
	ns     string
}

// NewMemory 创建内存存储
func NewMemory() *MemoryStore {
	return &MemoryStore{
		shared: &memoryShared{
			docs: map[string]map[string]interface{}{},
			subs: map[string]map[int]*memorySub{},
		},
	}
}

// Namespace 返回键空间隔离的派生存储
func (s *MemoryStore) Namespace(ns string) Store {
	return &MemoryStore{shared: s.shared, ns: joinNamespace(s.ns, ns)}
}

// Subscribe 订阅路径，先回放当前值
func (s *MemoryStore) Subscribe(ctx context.Context, path string) (<-chan json.RawMessage, func(), error) {
	root, segments := splitPath(path)
	key := s.docKey(root)

	sub := &memorySub{
		segments: segments,
		ch:       make(chan json.RawMessage, subscriberBuffer),
	}

	s.shared.mu.Lock()
	id := s.shared.nextID
	s.shared.nextID++
	if s.shared.subs[key] == nil {
		s.shared.subs[key] = map[int]*memorySub{}
	}
	s.shared.subs[key][id] = sub
	sub.ch <- marshalValue(valueAt(s.shared.docs[key], segments))
	s.shared.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.shared.mu.Lock()
			if subs, ok := s.shared.subs[key]; ok {
				delete(subs, id)
			}
			close(sub.ch)
			s.shared.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return sub.ch, unsubscribe, nil
}

// Update 套用一组路径更新并通知订阅者
func (s *MemoryStore) Update(ctx context.Context, updates map[string]interface{}) error {
	_ = ctx

	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	changed := map[string]struct{}{}
	for path, value := range updates {
		root, segments := splitPath(path)
		key := s.docKey(root)
		s.shared.docs[key] = applyToDoc(s.shared.docs[key], segments, value)
		if s.shared.docs[key] == nil {
			delete(s.shared.docs, key)
		}
		changed[key] = struct{}{}
	}

	for key := range changed {
		doc := s.shared.docs[key]
		for _, sub := range s.shared.subs[key] {
			select {
			case sub.ch <- marshalValue(valueAt(doc, sub.segments)):
			default:
				logger.Warnw("store_subscriber_lagging", "doc", key)
			}
		}
	}
	return nil
}

func (s *MemoryStore) docKey(root string) string {
	return joinNamespace(s.ns, root)
}

func joinNamespace(parts ...string) string {
	joined := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if joined == "" {
			joined = part
			continue
		}
		joined += ":" + part
	}
	return joined
}
