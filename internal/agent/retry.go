package agent

import (
	"context"

	"go.uber.org/zap"
)

// RetryAgent 包装另一个后端，在调用出错时做有限次重试
// 重试耗尽后返回 (nil, nil)，把最终回退决定权交还给引擎
type RetryAgent struct {
	inner       Agent
	maxAttempts int
}

func NewRetryAgent(inner Agent, maxAttempts int) *RetryAgent {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &RetryAgent{
		inner:       inner,
		maxAttempts: maxAttempts,
	}
}

func (ra *RetryAgent) Invoke(
	ctx context.Context,
	capability string,
	ac Context,
) (*Decision, error) {
	var lastErr error

	for attempt := 0; attempt < ra.maxAttempts; attempt++ {
		// 上层超时已经触发时不再继续重试
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		decision, err := ra.inner.Invoke(ctx, capability, ac)
		if err == nil {
			return decision, nil
		}

		lastErr = err

		zap.L().Debug(
			"决策调用失败，准备重试",
			zap.String("player", ac.Name),
			zap.String("capability", capability),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	zap.L().Warn(
		"决策重试次数耗尽，放弃决策",
		zap.String("player", ac.Name),
		zap.String("capability", capability),
		zap.Error(lastErr),
	)

	return nil, nil
}
