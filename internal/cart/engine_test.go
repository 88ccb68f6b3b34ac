package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xiaodian-next/internal/api"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/promohash"
	"github.com/xiaodian-next/internal/store"
)

type scriptedNotifier struct {
	mu        sync.Mutex
	confirmed bool
	takeOffer bool
	toasts    []string
	alerts    []string
}

func (n *scriptedNotifier) Toast(message string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, message)
	n.mu.Unlock()
}

func (n *scriptedNotifier) Alert(title, message string) {
	n.mu.Lock()
	n.alerts = append(n.alerts, message)
	n.mu.Unlock()
}

func (n *scriptedNotifier) Confirm(title, message string) bool { return n.confirmed }

func (n *scriptedNotifier) Offer(title, message, action string) bool { return n.takeOffer }

func (n *scriptedNotifier) lastToast() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return ""
	}
	return n.toasts[len(n.toasts)-1]
}

func (n *scriptedNotifier) lastAlert() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.alerts) == 0 {
		return ""
	}
	return n.alerts[len(n.alerts)-1]
}

type fakeSubmitter struct {
	mu           sync.Mutex
	confirmation *models.OrderConfirmation
	err          error
	drafts       []models.OrderDraft
}

func (s *fakeSubmitter) Submit(_ context.Context, draft models.OrderDraft) (*models.OrderConfirmation, error) {
	s.mu.Lock()
	s.drafts = append(s.drafts, draft)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.confirmation, nil
}

func (s *fakeSubmitter) draftCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

func (s *fakeSubmitter) lastDraft() models.OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[len(s.drafts)-1]
}

type stubFeed struct {
	entries []models.PromoCatalogEntry
	silent  bool
}

func (f *stubFeed) Subscribe() (<-chan []models.PromoCatalogEntry, func()) {
	ch := make(chan []models.PromoCatalogEntry, 1)
	if !f.silent {
		ch <- f.entries
	}
	return ch, func() {}
}

// countingStore 统计整体回写次数
type countingStore struct {
	store.Store
	mu          sync.Mutex
	wholeWrites int
}

func (s *countingStore) Update(ctx context.Context, updates map[string]interface{}) error {
	s.mu.Lock()
	for path := range updates {
		if path == "userCart" {
			s.wholeWrites++
		}
	}
	s.mu.Unlock()
	return s.Store.Update(ctx, updates)
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wholeWrites
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func testProduct(key string, price int64) *models.Product {
	return &models.Product{
		Key:   key,
		Title: "Test " + key,
		SKU:   "SKU-" + key,
		Price: models.NewMoneyFromInt(price),
		Unit:  "pcs",
	}
}

func percentEntry(code string, value int64) models.PromoCatalogEntry {
	return models.PromoCatalogEntry{
		Key:       "1",
		MatchHash: promohash.Fingerprint(code),
		Unit:      "%",
		Value:     models.NewMoneyFromInt(value),
	}
}

type engineFixture struct {
	engine    *Engine
	store     *countingStore
	submitter *fakeSubmitter
}

func newFixture(t *testing.T, feed PromoFeed) *engineFixture {
	t.Helper()
	if feed == nil {
		feed = &stubFeed{}
	}
	counting := &countingStore{Store: store.NewMemory()}
	submitter := &fakeSubmitter{confirmation: &models.OrderConfirmation{OrderID: "ORD-1"}}
	engine := NewEngine(Deps{
		Store:          counting,
		Feed:           feed,
		Submitter:      submitter,
		UserID:         1,
		DebounceWindow: 80 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		cancel()
	})
	return &engineFixture{engine: engine, store: counting, submitter: submitter}
}

func TestAddStoresAbsoluteQty(t *testing.T) {
	f := newFixture(t, nil)
	n := &scriptedNotifier{}

	f.engine.Add(context.Background(), testProduct("p1", 25), -3, n)

	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")
	item, ok := f.engine.Item("p1")
	if !ok {
		t.Fatalf("item p1 missing")
	}
	if item.Qty != 3 {
		t.Fatalf("expected qty 3, got %d", item.Qty)
	}
	if item.Timestamp == "" {
		t.Fatalf("expected timestamp on added item")
	}
	if item.Item.Title != "Test p1" || item.Item.SKU != "SKU-p1" {
		t.Fatalf("snapshot not copied: %+v", item.Item)
	}
	if n.lastToast() != "Product added to cart!" {
		t.Fatalf("expected add toast, got %q", n.lastToast())
	}
}

func TestAddOverwritesExistingKey(t *testing.T) {
	f := newFixture(t, nil)
	n := &scriptedNotifier{}

	f.engine.Add(context.Background(), testProduct("p1", 25), 2, n)
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "first add mirrored")

	f.engine.Add(context.Background(), testProduct("p1", 25), 5, n)
	waitFor(t, func() bool {
		item, ok := f.engine.Item("p1")
		return ok && item.Qty == 5
	}, "re-add overwrites line item")

	if f.engine.Count() != 1 {
		t.Fatalf("re-add must not create a second line item")
	}
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.Add(context.Background(), testProduct("p1", 25), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")

	f.engine.Remove(context.Background(), "p1", &scriptedNotifier{confirmed: false})
	time.Sleep(50 * time.Millisecond)
	if f.engine.Count() != 1 {
		t.Fatalf("cancelled removal must not mutate state")
	}

	f.engine.Remove(context.Background(), "p1", &scriptedNotifier{confirmed: true})
	waitFor(t, func() bool { return f.engine.Count() == 0 }, "item removed")
}

func TestChangeQtyZeroBecomesOne(t *testing.T) {
	f := newFixture(t, nil)

	f.engine.ChangeQty(context.Background(), models.CartItem{
		Key:  "a",
		Qty:  0,
		Item: models.ItemSnapshot{Price: models.NewMoneyFromInt(10)},
	})

	item, ok := f.engine.Item("a")
	if !ok {
		t.Fatalf("item a missing from mirror")
	}
	if item.Qty != 1 {
		t.Fatalf("qty 0 must normalize to 1, got %d", item.Qty)
	}

	// 去抖窗口结束后整体回写一次
	waitFor(t, func() bool { return f.store.count() == 1 }, "debounced write flushed")
}

func TestDebounceCoalescesRapidUpdates(t *testing.T) {
	f := newFixture(t, nil)

	for _, qty := range []int{2, 3, 5} {
		f.engine.ChangeQty(context.Background(), models.CartItem{
			Key:  "a",
			Qty:  qty,
			Item: models.ItemSnapshot{Price: models.NewMoneyFromInt(10)},
		})
		time.Sleep(30 * time.Millisecond) // 间隔小于 80ms 去抖窗口
	}

	waitFor(t, func() bool { return f.store.count() == 1 }, "single coalesced write")
	time.Sleep(150 * time.Millisecond)
	if f.store.count() != 1 {
		t.Fatalf("expected exactly one write, got %d", f.store.count())
	}

	item, _ := f.engine.Item("a")
	if item.Qty != 5 {
		t.Fatalf("write must carry the state of the last call, got qty %d", item.Qty)
	}
}

func TestApplyCodePreservesOriginalCase(t *testing.T) {
	feed := &stubFeed{entries: []models.PromoCatalogEntry{percentEntry("save10", 10)}}
	f := newFixture(t, feed)
	n := &scriptedNotifier{}

	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")

	f.engine.ApplyCode(context.Background(), "SAVE10", n)

	waitFor(t, func() bool { return f.engine.State().Promo != nil }, "promo mirrored")
	promo := f.engine.State().Promo
	if promo.Code != "SAVE10" {
		t.Fatalf("original case must be preserved, got %q", promo.Code)
	}
	if promo.Key != "" {
		t.Fatalf("transient key must be stripped, got %q", promo.Key)
	}
	if n.lastToast() != "Promotion code applied!" {
		t.Fatalf("expected promo toast, got %q", n.lastToast())
	}
}

func TestApplyCodeLastMatchWins(t *testing.T) {
	first := percentEntry("save10", 10)
	second := percentEntry("save10", 20)
	second.Key = "2"
	feed := &stubFeed{entries: []models.PromoCatalogEntry{first, second}}
	f := newFixture(t, feed)

	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")

	f.engine.ApplyCode(context.Background(), "save10", &scriptedNotifier{})

	waitFor(t, func() bool { return f.engine.State().Promo != nil }, "promo mirrored")
	promo := f.engine.State().Promo
	if promo.Value.String() != "20.00" {
		t.Fatalf("later duplicate must win, got value %s", promo.Value.String())
	}
}

func TestApplyCodeRejectsUnknown(t *testing.T) {
	feed := &stubFeed{entries: []models.PromoCatalogEntry{percentEntry("save10", 10)}}
	f := newFixture(t, feed)
	n := &scriptedNotifier{}

	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")

	f.engine.ApplyCode(context.Background(), "bogus", n)
	time.Sleep(50 * time.Millisecond)

	if f.engine.State().Promo != nil {
		t.Fatalf("unmatched code must not mutate state")
	}
	if n.lastAlert() != "Invalid promotion code!" {
		t.Fatalf("expected rejection alert, got %q", n.lastAlert())
	}
}

func TestApplyCodeNoopBeforeCatalogLoads(t *testing.T) {
	f := newFixture(t, &stubFeed{silent: true})
	n := &scriptedNotifier{}

	f.engine.ApplyCode(context.Background(), "save10", n)
	time.Sleep(50 * time.Millisecond)

	if f.engine.State().Promo != nil || n.lastAlert() != "" {
		t.Fatalf("apply before catalog load must be a no-op")
	}
}

func TestRemoveCodeClearsPromo(t *testing.T) {
	feed := &stubFeed{entries: []models.PromoCatalogEntry{percentEntry("save10", 10)}}
	f := newFixture(t, feed)

	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")

	f.engine.ApplyCode(context.Background(), "save10", &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.State().Promo != nil }, "promo mirrored")

	f.engine.RemoveCode(context.Background())
	waitFor(t, func() bool { return f.engine.State().Promo == nil }, "promo removed")
}

func TestClearTombstonesItemsAndPromo(t *testing.T) {
	feed := &stubFeed{entries: []models.PromoCatalogEntry{percentEntry("save10", 10)}}
	f := newFixture(t, feed)

	f.engine.Add(context.Background(), testProduct("p1", 25), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")
	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")
	f.engine.ApplyCode(context.Background(), "save10", &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.State().Promo != nil }, "promo mirrored")
	f.engine.SetClient(context.Background(), models.ClientInfo{Email: "a@b.c", Tel: "1", Address: "x"})

	f.engine.Clear(context.Background(), &scriptedNotifier{confirmed: true})

	waitFor(t, func() bool {
		state := f.engine.State()
		return len(state.Items) == 0 && state.Promo == nil
	}, "items and promo cleared")
}

func TestPlaceOrderAssemblesDraft(t *testing.T) {
	feed := &stubFeed{entries: []models.PromoCatalogEntry{percentEntry("save10", 10)}}
	f := newFixture(t, feed)

	f.engine.Add(context.Background(), testProduct("p1", 50), 2, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")
	waitFor(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.promoLoaded
	}, "catalog loaded")
	f.engine.ApplyCode(context.Background(), "save10", &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.State().Promo != nil }, "promo mirrored")
	f.engine.SetClient(context.Background(), models.ClientInfo{Email: "a@b.c", Tel: "1", Address: "x"})

	if !f.engine.OrderReady() {
		t.Fatalf("order should be ready")
	}

	n := &scriptedNotifier{confirmed: true}
	confirmation, err := f.engine.PlaceOrder(context.Background(), n)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if confirmation == nil || confirmation.OrderID != "ORD-1" {
		t.Fatalf("unexpected confirmation: %+v", confirmation)
	}

	draft := f.submitter.lastDraft()
	if draft.Subtotal.String() != "100.00" {
		t.Fatalf("unexpected subtotal: %s", draft.Subtotal.String())
	}
	if draft.Total.String() != "90.00" {
		t.Fatalf("unexpected total: %s", draft.Total.String())
	}
	if draft.Discount == nil || draft.Discount.String() != "10.00" {
		t.Fatalf("unexpected discount: %+v", draft.Discount)
	}
	if draft.PromoCode != "SAVE10" {
		t.Fatalf("promo code must be uppercased, got %q", draft.PromoCode)
	}
	if draft.Count != 1 {
		t.Fatalf("unexpected count: %d", draft.Count)
	}
}

func TestPlaceOrderZeroDiscountOmitted(t *testing.T) {
	f := newFixture(t, nil)

	f.engine.Add(context.Background(), testProduct("p1", 50), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")

	if _, err := f.engine.PlaceOrder(context.Background(), &scriptedNotifier{confirmed: true}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	draft := f.submitter.lastDraft()
	if draft.Discount != nil {
		t.Fatalf("zero discount must be omitted, got %+v", draft.Discount)
	}
	if draft.PromoCode != "" {
		t.Fatalf("promo code must be absent without promo, got %q", draft.PromoCode)
	}
}

func TestPlaceOrderNotConfirmed(t *testing.T) {
	f := newFixture(t, nil)

	confirmation, err := f.engine.PlaceOrder(context.Background(), &scriptedNotifier{confirmed: false})
	if confirmation != nil || err != nil {
		t.Fatalf("unconfirmed order must be a no-op, got %+v %v", confirmation, err)
	}
	if f.submitter.draftCount() != 0 {
		t.Fatalf("submitter must not be called without confirmation")
	}
}

func TestPlaceOrderFailureShowsServerMessage(t *testing.T) {
	f := newFixture(t, nil)
	submitErr := &api.SubmitError{}
	submitErr.Meta.Message = "out of stock"
	f.submitter.err = submitErr

	f.engine.Add(context.Background(), testProduct("p1", 50), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")

	n := &scriptedNotifier{confirmed: true}
	_, err := f.engine.PlaceOrder(context.Background(), n)
	if err == nil {
		t.Fatalf("expected submit error")
	}
	if n.lastAlert() != "out of stock" {
		t.Fatalf("expected server message, got %q", n.lastAlert())
	}
	if f.engine.Count() != 1 {
		t.Fatalf("failed submission must leave cart untouched")
	}
}

func TestPlaceOrderFailureGenericMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.submitter.err = errors.New("connection refused")

	f.engine.Add(context.Background(), testProduct("p1", 50), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")

	n := &scriptedNotifier{confirmed: true}
	if _, err := f.engine.PlaceOrder(context.Background(), n); err == nil {
		t.Fatalf("expected submit error")
	}
	if n.lastAlert() != "Unknown errors!" {
		t.Fatalf("expected generic message, got %q", n.lastAlert())
	}
}

func TestPlaceOrderSuccessOfferClearsCart(t *testing.T) {
	f := newFixture(t, nil)

	f.engine.Add(context.Background(), testProduct("p1", 50), 1, &scriptedNotifier{})
	waitFor(t, func() bool { return f.engine.Count() == 1 }, "item mirrored")

	// 不执行次级动作时购物车保留
	if _, err := f.engine.PlaceOrder(context.Background(), &scriptedNotifier{confirmed: true}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if f.engine.Count() != 1 {
		t.Fatalf("cart must not clear automatically on success")
	}

	// 执行次级动作时清空
	if _, err := f.engine.PlaceOrder(context.Background(), &scriptedNotifier{confirmed: true, takeOffer: true}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	waitFor(t, func() bool { return f.engine.Count() == 0 }, "cart cleared via offer")
}

func TestMirrorFollowsAuthoritativeSnapshots(t *testing.T) {
	f := newFixture(t, nil)

	raw, _ := json.Marshal(models.CartState{
		Items: map[string]models.CartItem{
			"x": {Qty: 4, Item: models.ItemSnapshot{Price: models.NewMoneyFromInt(5)}},
		},
		Client: models.ClientInfo{Email: "a@b.c"},
	})
	if err := f.store.Update(context.Background(), map[string]interface{}{"userCart": json.RawMessage(raw)}); err != nil {
		t.Fatalf("update error: %v", err)
	}

	waitFor(t, func() bool { return f.engine.Count() == 1 }, "snapshot applied")
	item, _ := f.engine.Item("x")
	if item.Key != "x" || item.Qty != 4 {
		t.Fatalf("unexpected mirrored item: %+v", item)
	}
	if f.engine.State().Client.Email != "a@b.c" {
		t.Fatalf("client not mirrored")
	}
}
