package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case raw := <-ch:
		return raw
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeReplaysInitialValue(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ch, unsub, err := s.Subscribe(ctx, "userCart")
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()

	if got := string(recv(t, ch)); got != "null" {
		t.Fatalf("expected null for missing doc, got %s", got)
	}
}

func TestUpdateNotifiesSubscribers(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ch, unsub, err := s.Subscribe(ctx, "userCart")
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()
	recv(t, ch) // 初始值

	if err := s.Update(ctx, map[string]interface{}{
		"userCart/items/p1": map[string]interface{}{"qty": 2},
	}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	var doc map[string]map[string]map[string]int
	if err := json.Unmarshal(recv(t, ch), &doc); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if doc["items"]["p1"]["qty"] != 2 {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestTombstoneDeletesPath(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if err := s.Update(ctx, map[string]interface{}{
		"userCart/items/p1": map[string]interface{}{"qty": 1},
		"userCart/promo":    map[string]interface{}{"code": "X"},
	}); err != nil {
		t.Fatalf("update error: %v", err)
	}
	if err := s.Update(ctx, map[string]interface{}{
		"userCart/items": nil,
		"userCart/promo": nil,
	}); err != nil {
		t.Fatalf("tombstone update error: %v", err)
	}

	ch, unsub, err := s.Subscribe(ctx, "userCart")
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()

	var doc map[string]interface{}
	if err := json.Unmarshal(recv(t, ch), &doc); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if _, ok := doc["items"]; ok {
		t.Fatalf("items should be deleted: %+v", doc)
	}
	if _, ok := doc["promo"]; ok {
		t.Fatalf("promo should be deleted: %+v", doc)
	}
}

func TestSubscribeSubPath(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ch, unsub, err := s.Subscribe(ctx, "userCart/promo")
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()
	recv(t, ch)

	if err := s.Update(ctx, map[string]interface{}{
		"userCart/promo": map[string]interface{}{"code": "SAVE10"},
	}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	var promo map[string]string
	if err := json.Unmarshal(recv(t, ch), &promo); err != nil {
		t.Fatalf("unmarshal promo: %v", err)
	}
	if promo["code"] != "SAVE10" {
		t.Fatalf("unexpected promo: %+v", promo)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	base := NewMemory()
	ctx := context.Background()
	a := base.Namespace("user:1")
	b := base.Namespace("user:2")

	if err := a.Update(ctx, map[string]interface{}{
		"userCart/items/p1": map[string]interface{}{"qty": 1},
	}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	ch, unsub, err := b.Subscribe(ctx, "userCart")
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()
	if got := string(recv(t, ch)); got != "null" {
		t.Fatalf("namespace b should be empty, got %s", got)
	}
}
