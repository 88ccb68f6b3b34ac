package public

import (
	"github.com/xiaodian-next/internal/cart"
	"github.com/xiaodian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "未登录")
		c.Abort()
		return 0, false
	}

	var userID uint
	switch value := raw.(type) {
	case uint:
		userID = value
	case int:
		if value > 0 {
			userID = uint(value)
		}
	case float64:
		if value > 0 {
			userID = uint(value)
		}
	}
	if userID == 0 {
		response.Unauthorized(c, "无效的用户标识")
		c.Abort()
		return 0, false
	}
	return userID, true
}

// engineFor 取当前用户的购物车引擎
func (h *Handler) engineFor(c *gin.Context) (*cart.Engine, bool) {
	uid, ok := getUserID(c)
	if !ok {
		return nil, false
	}
	engine, err := h.Carts.Get(uid)
	if err != nil {
		response.Internal(c, "购物车初始化失败")
		return nil, false
	}
	return engine, true
}
