// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/paiban/planning/pkg/daycombo"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Solver   SolverConfig   `envPrefix:"SOLVER_"`
	DayCombo DayComboConfig `envPrefix:"DAYCOMBO_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"paiban-planning"`
	Env       string `env:"ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"7012"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// APIKeys 为空时不校验密钥
	APIKeys   []string `env:"API_KEYS" envSeparator:","`
	RateLimit int      `env:"RATE_LIMIT" envDefault:"60"` // 每个调用方每分钟请求数，0 不限制
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"paiban"`
	User            string        `env:"USER" envDefault:"paiban"`
	Password        string        `env:"PASSWORD"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置，未启用时班段组合目录只做进程内缓存
type RedisConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"false"`
	Host     string        `env:"HOST" envDefault:"localhost"`
	Port     int           `env:"PORT" envDefault:"6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"24h"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SolverConfig 求解器默认参数，请求可逐项覆盖
type SolverConfig struct {
	TimeLimit          time.Duration `env:"TIME_LIMIT" envDefault:"30s"`
	MaxTimeLimit       time.Duration `env:"MAX_TIME_LIMIT" envDefault:"2m"` // 请求可申请的最长求解时间
	Workers            int           `env:"WORKERS" envDefault:"1"`
	MaxConsecutiveDays int           `env:"MAX_CONSECUTIVE_DAYS" envDefault:"6"`
	Seed               int64         `env:"SEED" envDefault:"0"`
	Log                bool          `env:"LOG" envDefault:"false"`
}

// DayComboConfig 班段组合规则（分钟），0 表示不限制
type DayComboConfig struct {
	MaxWork         int `env:"MAX_WORK" envDefault:"600"`
	MaxNightWork    int `env:"MAX_NIGHT_WORK" envDefault:"480"`
	MaxAmplitude    int `env:"MAX_AMPLITUDE" envDefault:"780"`
	MinRest         int `env:"MIN_REST" envDefault:"660"`
	MinNightRest    int `env:"MIN_NIGHT_REST" envDefault:"720"`
	MaxSize         int `env:"MAX_SIZE" envDefault:"0"` // 0 表示取全部班段
	MaxSubsets      int `env:"MAX_SUBSETS" envDefault:"262144"`
	MaxCombinations int `env:"MAX_COMBINATIONS" envDefault:"1024"`
	MemoSize        int `env:"MEMO_SIZE" envDefault:"256"` // 进程内目录缓存条目数
}

// Rules 返回班段组合规则
func (c DayComboConfig) Rules() daycombo.StandardRules {
	return daycombo.StandardRules{
		MaxWorkMinutes:      c.MaxWork,
		MaxNightWorkMinutes: c.MaxNightWork,
		MaxAmplitudeMinutes: c.MaxAmplitude,
		MinRestMinutes:      c.MinRest,
		MinRestNightMinutes: c.MinNightRest,
	}
}

// Limits 返回组合分析规模上限
func (c DayComboConfig) Limits() daycombo.Limits {
	return daycombo.Limits{MaxSubsets: c.MaxSubsets, MaxCombinations: c.MaxCombinations}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) {
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if cfg.Solver.Workers < 1 {
		return nil, fmt.Errorf("SOLVER_WORKERS 必须大于 0: %d", cfg.Solver.Workers)
	}
	if cfg.Solver.MaxTimeLimit < cfg.Solver.TimeLimit {
		return nil, fmt.Errorf("SOLVER_MAX_TIME_LIMIT 不能小于 SOLVER_TIME_LIMIT: %v < %v", cfg.Solver.MaxTimeLimit, cfg.Solver.TimeLimit)
	}
	if cfg.DayCombo.MaxSize < 0 {
		return nil, fmt.Errorf("DAYCOMBO_MAX_SIZE 不能为负: %d", cfg.DayCombo.MaxSize)
	}
	if cfg.DayCombo.MaxSubsets < 1 || cfg.DayCombo.MaxCombinations < 1 || cfg.DayCombo.MemoSize < 1 {
		return nil, errors.New("DAYCOMBO_MAX_SUBSETS、DAYCOMBO_MAX_COMBINATIONS 与 DAYCOMBO_MEMO_SIZE 必须大于 0")
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
