package models

// ItemSnapshot 商品展示快照，加购时从商品记录复制
type ItemSnapshot struct {
	Title     string  `json:"title"`
	SKU       string  `json:"sku"`
	Price     Money   `json:"price"`
	Unit      string  `json:"unit"`
	Thumbnail *string `json:"thumbnail"`
}

// CartItem 购物车行项
// Key 是行项在 items 映射中的键，属于瞬态标识，不随行项本体落库
type CartItem struct {
	Key       string       `json:"-"`
	Timestamp string       `json:"timestamp"` // ISO-8601
	Qty       int          `json:"qty"`       // 恒为正整数
	Item      ItemSnapshot `json:"item"`
}

// ClientInfo 下单联系方式
type ClientInfo struct {
	Email   string `json:"email,omitempty"`
	Tel     string `json:"tel,omitempty"`
	Address string `json:"address,omitempty"`
}

// Complete 判断联系方式是否齐全
func (c ClientInfo) Complete() bool {
	return c.Email != "" && c.Tel != "" && c.Address != ""
}

// CartState 购物车状态，权威副本存于远端响应式存储
type CartState struct {
	Items  map[string]CartItem `json:"items,omitempty"`
	Client ClientInfo          `json:"client"`
	Promo  *PromoApplication   `json:"promo,omitempty"`
}
