// Package lifecycle 驱动智能体的生死循环：调度器找出到期的智能体，
// 经由唤醒队列交给思考处理器，处理器完成 决策→执行→记账 的闭环，
// 并执行 胚胎→存活→死亡 的状态机。
package lifecycle

import (
	"context"
)

// Handler 处理来自唤醒队列的智能体 ID。
type Handler func(ctx context.Context, agentID string) error

// Producer 负责向唤醒队列投递智能体 ID。
type Producer interface {
	Publish(ctx context.Context, agentID string) error
	Close() error
}

// Consumer 负责从唤醒队列消费智能体 ID。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
