package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 游戏引擎的默认参数，创建会话时可被请求覆盖
type GameConfig struct {
	NumPlayers    int `mapstructure:"num_players"`
	NumWerewolves int `mapstructure:"num_werewolves"`
	// 每轮辩论发言次数上限
	MaxDebateTurns int `mapstructure:"max_debate_turns"`
	// 单次决策调用的超时时间（秒）
	DecisionTimeoutSec int `mapstructure:"decision_timeout_sec"`
	// 每个会话的并发决策工作池大小
	NumWorkers int `mapstructure:"num_workers"`
	// 辩论发言顺序策略：bid | rotation
	DebatePolicy string `mapstructure:"debate_policy"`
	// 放逐计票规则：majority | plurality
	VoteRule string `mapstructure:"vote_rule"`
}

type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type AppConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	LogLevel string        `mapstructure:"log_level"`
	LogFile  LogFileConfig `mapstructure:"log_file"`
	Game     GameConfig    `mapstructure:"game"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config.json")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	setGameDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}

func setGameDefaults(v *viper.Viper) {
	v.SetDefault("game.num_players", 6)
	v.SetDefault("game.num_werewolves", 1)
	v.SetDefault("game.max_debate_turns", 4)
	v.SetDefault("game.decision_timeout_sec", 60)
	v.SetDefault("game.num_workers", 4)
	v.SetDefault("game.debate_policy", "bid")
	v.SetDefault("game.vote_rule", "majority")
}
