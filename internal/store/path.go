package store

import (
	"encoding/json"
	"strings"
)

// splitPath 把路径拆为文档键（首段）和文档内路径（其余段）
func splitPath(path string) (root string, segments []string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}
	return parts[0], parts[1:]
}

// applyToDoc 将单条更新套用到文档树上；segments 为空表示整文档替换。
// value 为 nil 时删除该路径。
func applyToDoc(doc map[string]interface{}, segments []string, value interface{}) map[string]interface{} {
	if len(segments) == 0 {
		converted, ok := normalizeValue(value).(map[string]interface{})
		if value == nil || !ok {
			return nil
		}
		return converted
	}
	if doc == nil {
		if value == nil {
			return nil
		}
		doc = map[string]interface{}{}
	}

	node := doc
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]interface{})
		if !ok {
			if value == nil {
				return doc
			}
			child = map[string]interface{}{}
			node[segment] = child
		}
		node = child
	}

	last := segments[len(segments)-1]
	if value == nil {
		delete(node, last)
	} else {
		node[last] = normalizeValue(value)
	}
	return doc
}

// valueAt 取文档内路径的当前值，路径不存在时返回 nil
func valueAt(doc map[string]interface{}, segments []string) interface{} {
	if doc == nil {
		return nil
	}
	var current interface{} = doc
	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = node[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// normalizeValue 经 JSON 往返把任意值规整为 map/slice/基础类型，
// 保证文档树内只出现可序列化的通用结构
func normalizeValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil
	}
	return normalized
}

// marshalValue 序列化路径值，nil 输出 JSON null
func marshalValue(value interface{}) json.RawMessage {
	if value == nil {
		return json.RawMessage("null")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
