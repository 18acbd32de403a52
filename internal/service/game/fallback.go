package game

import (
	"math/rand"
	"slices"
)

// 引擎干预原因，回退事件和日志中都用这些字符串区分失败路径
const (
	FALLBACK_NULL     = "null_decision"
	FALLBACK_ERROR    = "backend_error"
	FALLBACK_TIMEOUT  = "timeout"
	FALLBACK_INVALID  = "invalid_option"
	FALLBACK_SELFVOTE = "self_vote"
)

// validateTarget 校验目标类决策：
// reason 为空表示决策本身已经无效（上游超时/出错/空决策），
// 否则检查目标是否落在合法集合内，不合法时返回修正原因
func validateTarget(target string, options []string, reason string) (string, string) {
	if reason != "" {
		return "", reason
	}

	if !slices.Contains(options, target) {
		return "", FALLBACK_INVALID
	}

	return target, ""
}

// randomFallback 在合法目标中均匀随机挑一个替补，没有合法目标时返回空
func randomFallback(options []string) string {
	if len(options) == 0 {
		return ""
	}

	return options[rand.Intn(len(options))]
}

// nextAliveFallback 是投票的确定性替补目标：
// 存活列表中排在投票者之后的第一名玩家（环形查找，跳过自己）
func nextAliveFallback(alive []string, voter string) string {
	if len(alive) == 0 {
		return ""
	}

	start := slices.Index(alive, voter)
	if start < 0 {
		start = len(alive) - 1
	}

	for i := 1; i <= len(alive); i++ {
		candidate := alive[(start+i)%len(alive)]
		if candidate != voter {
			return candidate
		}
	}

	return ""
}
