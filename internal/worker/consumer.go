package worker

import (
	"context"
	"encoding/json"

	"github.com/xiaodian-next/internal/logger"
	"github.com/xiaodian-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct{}

// NewConsumer 创建消费者
func NewConsumer() *Consumer {
	return &Consumer{}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderCreated, c.handleOrderCreated)
}

// handleOrderCreated 记录下单跟进事件。
// 通知投递（邮件/推送）由店面的通知服务消费同一事件完成，这里只负责落日志。
func (c *Consumer) handleOrderCreated(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_created_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_created_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == "" {
		logger.Debugw("worker_order_created_skip_invalid_payload")
		return nil
	}
	logger.Infow("order_created_followup",
		"order_id", payload.OrderID,
		"user_id", payload.UserID,
		"total", payload.Total,
		"promo_code", payload.PromoCode,
	)
	return nil
}
