package models

// OrderDraft 提交给订单创建接口的载荷，按需派生，不单独持久化
type OrderDraft struct {
	Client    ClientInfo          `json:"client"`
	Count     int                 `json:"count"`
	Subtotal  Money               `json:"subtotal"`
	Total     Money               `json:"total"`
	Items     map[string]CartItem `json:"items"`
	Discount  *Money              `json:"discount,omitempty"`  // 仅在非零时携带
	PromoCode string              `json:"promoCode,omitempty"` // 仅在已应用促销码时携带（大写）
}

// OrderConfirmation 订单创建成功回执
type OrderConfirmation struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
