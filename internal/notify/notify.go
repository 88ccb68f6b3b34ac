// Package notify 定义用户提示端口，对应移动端的 toast 与对话框。
// 引擎只依赖该端口；HTTP 层用收集器实现把提示并入响应，测试用脚本化实现。
package notify

import "sync"

// Notifier 用户提示端口
type Notifier interface {
	// Toast 短暂提示
	Toast(message string)
	// Alert 模态提示
	Alert(title, message string)
	// Confirm 危险操作确认，返回用户是否确认
	Confirm(title, message string) bool
	// Offer 展示带次级动作的提示，返回用户是否执行了次级动作
	Offer(title, message, action string) bool
}

// Nop 静默实现，任何确认都拒绝
type Nop struct{}

func (Nop) Toast(string) {}

func (Nop) Alert(string, string) {}

func (Nop) Confirm(string, string) bool { return false }

func (Nop) Offer(string, string, string) bool { return false }

// Message 收集到的一条提示
type Message struct {
	Kind    string `json:"kind"` // toast / alert
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Collector HTTP 层实现：确认结果由请求预先给定，提示被收集进响应
type Collector struct {
	mu        sync.Mutex
	messages  []Message
	confirmed bool
	takeOffer bool
}

// NewCollector 创建收集器；confirmed 表示请求本身是否携带确认语义，
// takeOffer 表示是否执行成功提示上的次级动作
func NewCollector(confirmed, takeOffer bool) *Collector {
	return &Collector{confirmed: confirmed, takeOffer: takeOffer}
}

// Toast 记录短暂提示
func (c *Collector) Toast(message string) {
	c.append(Message{Kind: "toast", Message: message})
}

// Alert 记录模态提示
func (c *Collector) Alert(title, message string) {
	c.append(Message{Kind: "alert", Title: title, Message: message})
}

// Confirm 返回请求携带的确认结果
func (c *Collector) Confirm(title, message string) bool {
	if !c.confirmed {
		c.append(Message{Kind: "alert", Title: title, Message: message})
	}
	return c.confirmed
}

// Offer 记录提示并返回是否执行次级动作
func (c *Collector) Offer(title, message, action string) bool {
	c.append(Message{Kind: "alert", Title: title, Message: message})
	return c.takeOffer
}

// Messages 取收集到的全部提示
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Collector) append(message Message) {
	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()
}
