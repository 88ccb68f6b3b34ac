package constants

// 促销单位常量
const (
	PromoUnitPercent = "%"
	PromoUnitFlat    = "flat"
)

// 购物车存储路径常量
const (
	CartRootPath     = "userCart"
	CartItemsSegment = "items"
	CartPromoSegment = "promo"
)

// 商品目录常量
const (
	ProductListLimit = 100
)

// 队列与任务常量
const (
	QueueDefault     = "default"
	TaskOrderCreated = "order:created"
)

// 促销目录变更信号频道
const (
	PromoChangedChannel = "promo_changed"
)

// 用户提示文案（与移动端展示保持一致）
const (
	TitleCart    = "Cart"
	TitleSuccess = "Success"
	TitleError   = "Error!"

	MsgProductAdded      = "Product added to cart!"
	MsgPromoApplied      = "Promotion code applied!"
	MsgPromoInvalid      = "Invalid promotion code!"
	MsgRemoveItemConfirm = "Remove item from cart?"
	MsgClearCartConfirm  = "Clear cart?"
	MsgPlaceOrderConfirm = "Place order now?"
	MsgOrderCreated      = "Your order has been created. We will get in touch with you soon!"
	MsgOrderUnknown      = "Unknown errors!"

	ActionClearCart = "Clear cart"
)
