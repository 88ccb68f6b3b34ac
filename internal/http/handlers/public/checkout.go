package public

import (
	"github.com/xiaodian-next/internal/http/response"
	"github.com/xiaodian-next/internal/notify"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	Confirmed      *bool `json:"confirmed"`        // 缺省视为已确认
	ClearOnSuccess bool  `json:"clear_on_success"` // 成功后执行清空购物车的次级动作
}

// Checkout 提交订单
func (h *Handler) Checkout(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, "请求参数错误")
		return
	}
	confirmed := true
	if req.Confirmed != nil {
		confirmed = *req.Confirmed
	}

	if !engine.OrderReady() {
		response.BadRequest(c, "购物车为空或联系方式不完整")
		return
	}

	collector := notify.NewCollector(confirmed, req.ClearOnSuccess)
	confirmation, err := engine.PlaceOrder(c.Request.Context(), collector)
	if err != nil {
		response.ErrorWithData(c, response.CodeBadRequest, "下单失败", gin.H{
			"messages": collector.Messages(),
		})
		return
	}
	if confirmation == nil {
		// 未确认，回传确认提示
		response.Success(c, gin.H{"messages": collector.Messages()})
		return
	}

	response.Success(c, gin.H{
		"order":    confirmation,
		"messages": collector.Messages(),
	})
}
