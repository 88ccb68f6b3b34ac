package public

import (
	"strconv"

	"github.com/xiaodian-next/internal/http/response"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/notify"

	"github.com/gin-gonic/gin"
)

// AddItemRequest 加购请求
type AddItemRequest struct {
	Key string `json:"key" binding:"required"`
	Qty int    `json:"qty"`
}

// ChangeQtyRequest 修改数量请求
type ChangeQtyRequest struct {
	Qty int `json:"qty"`
}

// PromoRequest 促销码请求
type PromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ClientRequest 联系方式请求
type ClientRequest struct {
	Email   string `json:"email"`
	Tel     string `json:"tel"`
	Address string `json:"address"`
}

// CartView 购物车视图：镜像状态加即时定价
type CartView struct {
	Items      map[string]models.CartItem `json:"items"`
	Client     models.ClientInfo          `json:"client"`
	Promo      *models.PromoApplication   `json:"promo,omitempty"`
	Count      int                        `json:"count"`
	Subtotal   models.Money               `json:"subtotal"`
	Discount   models.Money               `json:"discount"`
	Total      models.Money               `json:"total"`
	OrderReady bool                       `json:"order_ready"`
}

func (h *Handler) cartView(c *gin.Context) (*CartView, bool) {
	engine, ok := h.engineFor(c)
	if !ok {
		return nil, false
	}
	state := engine.State()
	items := state.Items
	if items == nil {
		items = map[string]models.CartItem{}
	}
	return &CartView{
		Items:      items,
		Client:     state.Client,
		Promo:      state.Promo,
		Count:      engine.Count(),
		Subtotal:   engine.Subtotal(),
		Discount:   engine.Discount(),
		Total:      engine.Total(),
		OrderReady: engine.OrderReady(),
	}, true
}

// GetCart 获取购物车状态与定价
func (h *Handler) GetCart(c *gin.Context) {
	view, ok := h.cartView(c)
	if !ok {
		return
	}
	response.Success(c, view)
}

// AddCartItem 加购商品
func (h *Handler) AddCartItem(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	product, err := h.Products.GetByKey(req.Key)
	if err != nil {
		response.Internal(c, "商品查询失败")
		return
	}
	if product == nil || !product.IsActive {
		response.NotFound(c, "商品不存在或已下架")
		return
	}

	collector := notify.NewCollector(true, false)
	engine.Add(c.Request.Context(), product, req.Qty, collector)
	response.Success(c, gin.H{"messages": collector.Messages()})
}

// ChangeCartItemQty 修改行项数量
func (h *Handler) ChangeCartItemQty(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	key := c.Param("key")
	var req ChangeQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	item, exists := engine.Item(key)
	if !exists {
		response.NotFound(c, "购物车内无此商品")
		return
	}
	item.Qty = req.Qty
	engine.ChangeQty(c.Request.Context(), item)
	response.Success(c, gin.H{"updated": true})
}

// DeleteCartItem 删除行项；confirmed=false 时仅回传确认提示
func (h *Handler) DeleteCartItem(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	key := c.Param("key")
	if _, exists := engine.Item(key); !exists {
		response.NotFound(c, "购物车内无此商品")
		return
	}

	collector := notify.NewCollector(parseConfirmed(c), false)
	engine.Remove(c.Request.Context(), key, collector)
	response.Success(c, gin.H{"messages": collector.Messages()})
}

// ClearCart 清空购物车；confirmed=false 时仅回传确认提示
func (h *Handler) ClearCart(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	collector := notify.NewCollector(parseConfirmed(c), false)
	engine.Clear(c.Request.Context(), collector)
	response.Success(c, gin.H{"messages": collector.Messages()})
}

// ApplyPromoCode 应用促销码
func (h *Handler) ApplyPromoCode(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	collector := notify.NewCollector(true, false)
	engine.ApplyCode(c.Request.Context(), req.Code, collector)
	response.Success(c, gin.H{"messages": collector.Messages()})
}

// RemovePromoCode 移除促销码
func (h *Handler) RemovePromoCode(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	engine.RemoveCode(c.Request.Context())
	response.Success(c, gin.H{"removed": true})
}

// UpdateClient 更新联系方式
func (h *Handler) UpdateClient(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	engine.SetClient(c.Request.Context(), models.ClientInfo{
		Email:   req.Email,
		Tel:     req.Tel,
		Address: req.Address,
	})
	response.Success(c, gin.H{"updated": true})
}

// 确认语义默认成立：请求本身即用户确认，显式 confirmed=false 用于预览提示
func parseConfirmed(c *gin.Context) bool {
	raw := c.Query("confirmed")
	if raw == "" {
		return true
	}
	confirmed, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return confirmed
}
