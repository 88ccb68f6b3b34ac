package public

import (
	"github.com/xiaodian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListProducts 获取移动端首屏商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.Products.List()
	if err != nil {
		response.Internal(c, "商品查询失败")
		return
	}
	response.Success(c, gin.H{"items": products})
}

// GetProduct 获取单个商品
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.Products.GetByKey(c.Param("key"))
	if err != nil {
		response.Internal(c, "商品查询失败")
		return
	}
	if product == nil || !product.IsActive {
		response.NotFound(c, "商品不存在或已下架")
		return
	}
	response.Success(c, product)
}
