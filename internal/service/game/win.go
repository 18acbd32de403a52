package game

// Winner 是纯函数的胜负判定：
// 狼人数量不少于其他存活玩家时狼人获胜；狼人清零时村民阵营获胜；
// 否则返回空字符串表示尚未分出胜负。可以任意次重复调用，无副作用
func Winner(aliveWolves, aliveOthers int) string {
	if aliveWolves >= aliveOthers {
		return WINNER_WEREWOLVES
	}

	if aliveWolves == 0 {
		return WINNER_VILLAGERS
	}

	return ""
}

// EvaluateWinner 统计给定存活列表中的狼人数量后判定胜负
func (st *State) EvaluateWinner(alive []string) string {
	wolves := 0

	for _, name := range alive {
		if st.IsWerewolf(name) {
			wolves++
		}
	}

	return Winner(wolves, len(alive)-wolves)
}
