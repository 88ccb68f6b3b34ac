// Package api 封装后端订单创建接口的客户端。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaodian-next/internal/config"
	"github.com/xiaodian-next/internal/models"
)

const orderCreatePath = "/order/create"

// Submitter 订单创建接口
type Submitter interface {
	Submit(ctx context.Context, draft models.OrderDraft) (*models.OrderConfirmation, error)
}

// SubmitError 服务端返回的结构化下单错误
type SubmitError struct {
	Meta struct {
		Message string `json:"message"`
	} `json:"meta"`
}

// Error 实现 error
func (e *SubmitError) Error() string {
	if e == nil || e.Meta.Message == "" {
		return "order create failed"
	}
	return e.Meta.Message
}

// Message 取服务端消息，可能为空
func (e *SubmitError) Message() string {
	if e == nil {
		return ""
	}
	return e.Meta.Message
}

// Client HTTP 实现
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建订单接口客户端
func NewClient(cfg *config.OrderAPIConfig) *Client {
	baseURL := ""
	timeout := 15 * time.Second
	if cfg != nil {
		baseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	OrderData models.OrderDraft `json:"orderData"`
}

type submitResponse struct {
	Order *models.OrderConfirmation `json:"order"`
	Meta  *struct {
		Message string `json:"message"`
	} `json:"meta"`
}

// Submit 提交订单草稿，返回创建回执或结构化错误
func (c *Client) Submit(ctx context.Context, draft models.OrderDraft) (*models.OrderConfirmation, error) {
	payload, err := json.Marshal(submitRequest{OrderData: draft})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + orderCreatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded submitResponse
	// 错误响应可能不是 JSON，解析失败时按无服务端消息处理
	_ = json.Unmarshal(body, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		submitErr := &SubmitError{}
		if decoded.Meta != nil {
			submitErr.Meta.Message = decoded.Meta.Message
		}
		return nil, submitErr
	}

	if decoded.Order == nil {
		return nil, fmt.Errorf("order create response missing order: %s", string(body))
	}
	return decoded.Order, nil
}
