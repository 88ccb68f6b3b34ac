package queue

import (
	"encoding/json"

	"github.com/xiaodian-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderCreated 下单成功后的跟进任务
	TaskOrderCreated = constants.TaskOrderCreated
)

// OrderCreatedPayload 下单跟进任务载荷
type OrderCreatedPayload struct {
	OrderID   string `json:"order_id"`
	UserID    uint   `json:"user_id"`
	Total     string `json:"total"`
	PromoCode string `json:"promo_code,omitempty"`
}

// NewOrderCreatedTask 构造下单跟进任务
func NewOrderCreatedTask(payload OrderCreatedPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderCreated, raw), nil
}
