package cart

import (
	"encoding/json"
	"testing"

	"github.com/xiaodian-next/internal/models"
)

func pricingEngine(t *testing.T, state models.CartState) *Engine {
	t.Helper()
	engine := NewEngine(Deps{})
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	engine.applySnapshot(raw)
	return engine
}

func cartLine(qty int, price int64) models.CartItem {
	return models.CartItem{
		Qty:  qty,
		Item: models.ItemSnapshot{Price: models.NewMoneyFromInt(price)},
	}
}

func TestSubtotalSumsAbsoluteQuantities(t *testing.T) {
	engine := pricingEngine(t, models.CartState{
		Items: map[string]models.CartItem{
			"a": cartLine(2, 30),
			"b": cartLine(-4, 10),
		},
	})

	if got := engine.Subtotal().String(); got != "100.00" {
		t.Fatalf("expected subtotal 100.00, got %s", got)
	}
	if got := engine.Count(); got != 2 {
		t.Fatalf("expected 2 line items, got %d", got)
	}
}

func TestEmptyCartPricesToZero(t *testing.T) {
	engine := pricingEngine(t, models.CartState{})

	if got := engine.Subtotal().String(); got != "0.00" {
		t.Fatalf("expected subtotal 0.00, got %s", got)
	}
	if got := engine.Discount().String(); got != "0.00" {
		t.Fatalf("expected discount 0.00, got %s", got)
	}
	if got := engine.Total().String(); got != "0.00" {
		t.Fatalf("expected total 0.00, got %s", got)
	}
	if engine.OrderReady() {
		t.Fatalf("empty cart must not be order ready")
	}
}

func TestPercentDiscountScalesWithSubtotal(t *testing.T) {
	engine := pricingEngine(t, models.CartState{
		Items: map[string]models.CartItem{"a": cartLine(4, 50)},
		Promo: &models.PromoApplication{
			PromoCatalogEntry: models.PromoCatalogEntry{Unit: "%", Value: models.NewMoneyFromInt(10)},
			Code:              "SAVE10",
		},
	})

	if got := engine.Discount().String(); got != "20.00" {
		t.Fatalf("expected discount 20.00, got %s", got)
	}
	if got := engine.Total().String(); got != "180.00" {
		t.Fatalf("expected total 180.00, got %s", got)
	}
}

func TestFlatDiscountIgnoresSubtotal(t *testing.T) {
	engine := pricingEngine(t, models.CartState{
		Items: map[string]models.CartItem{"a": cartLine(1, 200)},
		Promo: &models.PromoApplication{
			PromoCatalogEntry: models.PromoCatalogEntry{Unit: "flat", Value: models.NewMoneyFromInt(15)},
			Code:              "TAKE15",
		},
	})

	if got := engine.Discount().String(); got != "15.00" {
		t.Fatalf("expected discount 15.00, got %s", got)
	}
	if got := engine.Total().String(); got != "185.00" {
		t.Fatalf("expected total 185.00, got %s", got)
	}
}

func TestFlatDiscountLargerThanSubtotalGoesNegative(t *testing.T) {
	engine := pricingEngine(t, models.CartState{
		Items: map[string]models.CartItem{"a": cartLine(1, 10)},
		Promo: &models.PromoApplication{
			PromoCatalogEntry: models.PromoCatalogEntry{Unit: "flat", Value: models.NewMoneyFromInt(50)},
			Code:              "BIG",
		},
	})

	// 折扣不截断，总计允许为负
	if got := engine.Total().String(); got != "-40.00" {
		t.Fatalf("expected total -40.00, got %s", got)
	}
}

func TestOrderReadyNeedsItemsAndFullContact(t *testing.T) {
	full := models.ClientInfo{Email: "a@b.c", Tel: "1", Address: "x"}

	withItems := pricingEngine(t, models.CartState{
		Items:  map[string]models.CartItem{"a": cartLine(1, 10)},
		Client: full,
	})
	if !withItems.OrderReady() {
		t.Fatalf("items plus full contact must be ready")
	}

	missingTel := pricingEngine(t, models.CartState{
		Items:  map[string]models.CartItem{"a": cartLine(1, 10)},
		Client: models.ClientInfo{Email: "a@b.c", Address: "x"},
	})
	if missingTel.OrderReady() {
		t.Fatalf("incomplete contact must not be ready")
	}

	noItems := pricingEngine(t, models.CartState{Client: full})
	if noItems.OrderReady() {
		t.Fatalf("empty cart must not be ready")
	}
}
