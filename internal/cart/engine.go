// Package cart 实现购物车引擎：本地镜像 + 远端权威副本。
//
// 所有变更操作只向远端存储写入局部更新，本地镜像仅由订阅流推回的
// 权威快照更新（ChangeQty 与 SetClient 是刻意保留的先改本地、
// 再去抖整体回写的例外）。定价始终按最新镜像即时计算，从不缓存。
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/xiaodian-next/internal/api"
	"github.com/xiaodian-next/internal/constants"
	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/notify"
	"github.com/xiaodian-next/internal/promohash"
	"github.com/xiaodian-next/internal/queue"
	"github.com/xiaodian-next/internal/store"

	"github.com/shopspring/decimal"
)

// DefaultDebounceWindow 去抖写入的默认安静窗口
const DefaultDebounceWindow = 1500 * time.Millisecond

// PromoFeed 促销目录订阅源
type PromoFeed interface {
	Subscribe() (<-chan []models.PromoCatalogEntry, func())
}

// Deps 引擎依赖
type Deps struct {
	Store          store.Store
	Feed           PromoFeed
	Submitter      api.Submitter
	Queue          *queue.Client
	UserID         uint
	RootPath       string
	DebounceWindow time.Duration
}

// Engine 购物车引擎
type Engine struct {
	mu           sync.Mutex
	items        map[string]models.CartItem
	client       models.ClientInfo
	promo        *models.PromoApplication
	promoEntries []models.PromoCatalogEntry
	promoLoaded  bool

	store     store.Store
	feed      PromoFeed
	submitter api.Submitter
	queue     *queue.Client
	userID    uint
	rootPath  string
	debouncer *Debouncer

	unsubStore func()
	unsubFeed  func()
	closeOnce  sync.Once
}

// NewEngine 创建引擎
func NewEngine(deps Deps) *Engine {
	rootPath := strings.Trim(deps.RootPath, "/")
	if rootPath == "" {
		rootPath = constants.CartRootPath
	}
	window := deps.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Engine{
		store:     deps.Store,
		feed:      deps.Feed,
		submitter: deps.Submitter,
		queue:     deps.Queue,
		userID:    deps.UserID,
		rootPath:  rootPath,
		debouncer: NewDebouncer(window),
	}
}

// Start 订阅购物车路径与促销目录
func (e *Engine) Start(ctx context.Context) error {
	snapshots, unsubStore, err := e.store.Subscribe(ctx, e.rootPath)
	if err != nil {
		return err
	}
	e.unsubStore = unsubStore
	go e.consumeSnapshots(snapshots)

	if e.feed != nil {
		entries, unsubFeed := e.feed.Subscribe()
		e.unsubFeed = unsubFeed
		go e.consumePromoEntries(entries)
	}
	return nil
}

// Close 取消订阅并丢弃待触发的去抖写入
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.debouncer.Cancel()
		if e.unsubStore != nil {
			e.unsubStore()
		}
		if e.unsubFeed != nil {
			e.unsubFeed()
		}
	})
}

func (e *Engine) consumeSnapshots(snapshots <-chan json.RawMessage) {
	for raw := range snapshots {
		e.applySnapshot(raw)
	}
}

func (e *Engine) consumePromoEntries(entries <-chan []models.PromoCatalogEntry) {
	for snapshot := range entries {
		e.mu.Lock()
		e.promoEntries = snapshot
		e.promoLoaded = true
		e.mu.Unlock()
	}
}

// applySnapshot 套用权威快照，镜像变更的唯一入口
func (e *Engine) applySnapshot(raw json.RawMessage) {
	var state models.CartState
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &state); err != nil {
			logger.Warnw("cart_snapshot_invalid", "user_id", e.userID, "error", err)
			return
		}
	}

	items := make(map[string]models.CartItem, len(state.Items))
	for key, item := range state.Items {
		item.Key = key
		items[key] = item
	}

	e.mu.Lock()
	e.items = items
	e.client = state.Client
	e.promo = state.Promo
	e.mu.Unlock()
}

// State 取镜像快照（行项带键）
func (e *Engine) State() models.CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CartState{
		Items:  e.copyItemsLocked(),
		Client: e.client,
		Promo:  e.promo,
	}
}

// Item 取单个行项
func (e *Engine) Item(key string) (models.CartItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.items[key]
	if ok {
		item.Key = key
	}
	return item, ok
}

// Count 不同行项数量
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// Subtotal 小计：Σ |qty| × price；购物车缺失视为空（0）
func (e *Engine) Subtotal() models.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subtotalLocked()
}

// Discount 折扣：未应用促销码为 0；百分比按小计折算，固定额原样返回。
// 不做上下限截断：固定额超过小计时 Total 为负，行为刻意保留。
func (e *Engine) Discount() models.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discountLocked()
}

// Total 总计 = 小计 − 折扣，每次即时计算
func (e *Engine) Total() models.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.NewMoneyFromDecimal(e.subtotalLocked().Decimal.Sub(e.discountLocked().Decimal))
}

func (e *Engine) subtotalLocked() models.Money {
	subtotal := decimal.Zero
	for _, item := range e.items {
		qty := item.Qty
		if qty < 0 {
			qty = -qty
		}
		subtotal = subtotal.Add(item.Item.Price.Decimal.Mul(decimal.NewFromInt(int64(qty))))
	}
	return models.NewMoneyFromDecimal(subtotal)
}

func (e *Engine) discountLocked() models.Money {
	if e.promo == nil {
		return models.Money{Decimal: decimal.Zero}
	}
	if e.promo.Unit == constants.PromoUnitPercent {
		value := e.subtotalLocked().Decimal.Mul(e.promo.Value.Decimal).Div(decimal.NewFromInt(100))
		return models.NewMoneyFromDecimal(value)
	}
	return e.promo.Value
}

func (e *Engine) copyItemsLocked() map[string]models.CartItem {
	items := make(map[string]models.CartItem, len(e.items))
	for key, item := range e.items {
		item.Key = key
		items[key] = item
	}
	return items
}

// Add 加购：数量取绝对值（0 视为 1），写入新行项并覆盖同键旧行项。
// 写入确认后弹出短暂提示；写入失败仅记日志。
func (e *Engine) Add(ctx context.Context, product *models.Product, qty int, n notify.Notifier) {
	if product == nil || product.Key == "" {
		return
	}
	if n == nil {
		n = notify.Nop{}
	}
	if qty < 0 {
		qty = -qty
	}
	if qty == 0 {
		qty = 1
	}

	item := models.CartItem{
		Timestamp: time.Now().Format(time.RFC3339),
		Qty:       qty,
		Item:      product.Snapshot(),
	}
	updates := map[string]interface{}{
		e.itemPath(product.Key): item,
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_add_write_failed", "user_id", e.userID, "key", product.Key, "error", err)
		return
	}
	n.Toast(constants.MsgProductAdded)
}

// Remove 删除行项，需要用户确认
func (e *Engine) Remove(ctx context.Context, key string, n notify.Notifier) {
	if n == nil {
		n = notify.Nop{}
	}
	if !n.Confirm(constants.TitleCart, constants.MsgRemoveItemConfirm) {
		return
	}
	updates := map[string]interface{}{
		e.itemPath(key): nil,
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_remove_write_failed", "user_id", e.userID, "key", key, "error", err)
	}
}

// ChangeQty 修改行项数量：取绝对值，0 归一为 1；
// 先写本地镜像，再触发去抖整体回写（唯一的先改本地例外之一）。
func (e *Engine) ChangeQty(ctx context.Context, item models.CartItem) {
	key := item.Key
	if key == "" {
		return
	}
	if item.Qty == 0 {
		item.Qty = 1
	} else if item.Qty < 0 {
		item.Qty = -item.Qty
	}
	item.Key = "" // 去掉瞬态键再写入镜像

	e.mu.Lock()
	if e.items == nil {
		e.items = map[string]models.CartItem{}
	}
	e.items[key] = item
	e.mu.Unlock()

	e.Update(ctx, false)
}

// SetClient 更新联系方式并触发去抖整体回写
func (e *Engine) SetClient(ctx context.Context, client models.ClientInfo) {
	e.mu.Lock()
	e.client = client
	e.mu.Unlock()
	e.Update(ctx, false)
}

// Clear 清空购物车（行项与促销码），需要用户确认
func (e *Engine) Clear(ctx context.Context, n notify.Notifier) {
	if n == nil {
		n = notify.Nop{}
	}
	if !n.Confirm(constants.TitleCart, constants.MsgClearCartConfirm) {
		return
	}
	e.clearRemote(ctx)
}

// Update 整体回写 {items, client, promo}。
// instantly 为真时立即写入；否则取消并重设去抖任务，
// 安静窗口结束时以届时的镜像状态写入，保证每个窗口至多一次写。
func (e *Engine) Update(ctx context.Context, instantly bool) {
	if instantly {
		e.flush(ctx)
		return
	}
	e.debouncer.Schedule(func() {
		e.flush(context.Background())
	})
}

func (e *Engine) flush(ctx context.Context) {
	e.mu.Lock()
	state := models.CartState{
		Items:  e.copyItemsLocked(),
		Client: e.client,
		Promo:  e.promo,
	}
	e.mu.Unlock()

	// 行项键是瞬态的，序列化由 json:"-" 负责剥离
	updates := map[string]interface{}{
		e.rootPath: state,
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_update_write_failed", "user_id", e.userID, "error", err)
	}
}

// ApplyCode 校验促销码：目录未加载或码为空时直接返回；
// 全量线性扫描，指纹相同的条目后者生效；命中则带原始大小写写入 promo，
// 未命中弹出拒绝提示且不改状态。
func (e *Engine) ApplyCode(ctx context.Context, code string, n notify.Notifier) {
	if n == nil {
		n = notify.Nop{}
	}

	e.mu.Lock()
	loaded := e.promoLoaded
	entries := e.promoEntries
	e.mu.Unlock()

	if !loaded || code == "" {
		return
	}

	fingerprint := promohash.Fingerprint(code)
	var match *models.PromoCatalogEntry
	for i := range entries {
		if entries[i].MatchHash == fingerprint {
			match = &entries[i]
		}
	}
	if match == nil {
		n.Alert(constants.TitleCart, constants.MsgPromoInvalid)
		return
	}

	updates := map[string]interface{}{
		e.promoPath(): match.Apply(code),
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_promo_write_failed", "user_id", e.userID, "error", err)
		return
	}
	n.Toast(constants.MsgPromoApplied)
}

// RemoveCode 移除促销码
func (e *Engine) RemoveCode(ctx context.Context) {
	updates := map[string]interface{}{
		e.promoPath(): nil,
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_promo_remove_failed", "user_id", e.userID, "error", err)
	}
}

// OrderReady 是否可下单：购物车非空且联系方式齐全
func (e *Engine) OrderReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items) > 0 && e.client.Complete()
}

// OrderDraft 组装订单草稿：折扣仅在非零时携带，促销码大写携带
func (e *Engine) OrderDraft() models.OrderDraft {
	e.mu.Lock()
	defer e.mu.Unlock()

	subtotal := e.subtotalLocked()
	discount := e.discountLocked()
	draft := models.OrderDraft{
		Client:   e.client,
		Count:    len(e.items),
		Subtotal: subtotal,
		Total:    models.NewMoneyFromDecimal(subtotal.Decimal.Sub(discount.Decimal)),
		Items:    e.copyItemsLocked(),
	}
	if !discount.Decimal.IsZero() {
		draft.Discount = &discount
	}
	if e.promo != nil {
		draft.PromoCode = strings.ToUpper(e.promo.Code)
	}
	return draft
}

// PlaceOrder 下单：需要确认；成功后提示并提供清空购物车的次级动作
// （从不自动清空），失败时展示服务端消息或通用文案，购物车保持原样。
// 未确认时返回 (nil, nil)。
func (e *Engine) PlaceOrder(ctx context.Context, n notify.Notifier) (*models.OrderConfirmation, error) {
	if n == nil {
		n = notify.Nop{}
	}
	if !n.Confirm(constants.TitleCart, constants.MsgPlaceOrderConfirm) {
		return nil, nil
	}

	draft := e.OrderDraft()
	confirmation, err := e.submitter.Submit(ctx, draft)
	if err != nil {
		message := constants.MsgOrderUnknown
		var submitErr *api.SubmitError
		if errors.As(err, &submitErr) && submitErr.Message() != "" {
			message = submitErr.Message()
		}
		n.Alert(constants.TitleError, message)
		return nil, err
	}

	if e.queue != nil {
		payload := queue.OrderCreatedPayload{
			OrderID:   confirmation.OrderID,
			UserID:    e.userID,
			Total:     draft.Total.String(),
			PromoCode: draft.PromoCode,
		}
		if err := e.queue.EnqueueOrderCreated(payload); err != nil {
			logger.Warnw("order_created_enqueue_failed", "order_id", confirmation.OrderID, "error", err)
		}
	}

	if n.Offer(constants.TitleSuccess, constants.MsgOrderCreated, constants.ActionClearCart) {
		e.clearRemote(ctx)
	}
	return confirmation, nil
}

func (e *Engine) clearRemote(ctx context.Context) {
	updates := map[string]interface{}{
		e.rootPath + "/" + constants.CartItemsSegment: nil,
		e.promoPath(): nil,
	}
	if err := e.store.Update(ctx, updates); err != nil {
		logger.Warnw("cart_clear_write_failed", "user_id", e.userID, "error", err)
	}
}

func (e *Engine) itemPath(key string) string {
	return e.rootPath + "/" + constants.CartItemsSegment + "/" + key
}

func (e *Engine) promoPath() string {
	return e.rootPath + "/" + constants.CartPromoSegment
}
