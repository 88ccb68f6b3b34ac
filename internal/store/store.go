// Package store 实现响应式键路径存储：
// 值按路径寻址（如 userCart/items/p1），Subscribe 推送路径当前值及后续每次变更，
// Update 以路径到值的映射做局部写入，nil 值表示删除该路径（墓碑）。
package store

import (
	"context"
	"encoding/json"
)

// Store 响应式键路径存储接口
type Store interface {
	// Subscribe 订阅路径，通道先收到当前值（不存在时为 null），之后收到每次变更后的值。
	// 返回的函数用于取消订阅。
	Subscribe(ctx context.Context, path string) (<-chan json.RawMessage, func(), error)

	// Update 套用一组路径更新，值为 nil 时删除该路径
	Update(ctx context.Context, updates map[string]interface{}) error

	// Namespace 返回共享底层连接、键空间相互隔离的派生存储
	Namespace(ns string) Store
}
