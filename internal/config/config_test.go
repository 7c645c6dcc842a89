package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.App.Port != 7012 {
		t.Errorf("App.Port = %d, want 7012", cfg.App.Port)
	}
	if cfg.Solver.TimeLimit != 30*time.Second {
		t.Errorf("Solver.TimeLimit = %v, want 30s", cfg.Solver.TimeLimit)
	}
	if cfg.Solver.MaxTimeLimit != 2*time.Minute {
		t.Errorf("Solver.MaxTimeLimit = %v, want 2m", cfg.Solver.MaxTimeLimit)
	}
	if cfg.Solver.Workers != 1 {
		t.Errorf("Solver.Workers = %d, want 1", cfg.Solver.Workers)
	}
	if cfg.Solver.MaxConsecutiveDays != 6 {
		t.Errorf("Solver.MaxConsecutiveDays = %d, want 6", cfg.Solver.MaxConsecutiveDays)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis 默认应关闭")
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Errorf("默认环境应为 development, got %q", cfg.App.Env)
	}

	rules := cfg.DayCombo.Rules()
	if rules.MaxWorkMinutes != 600 || rules.MaxNightWorkMinutes != 480 || rules.MaxAmplitudeMinutes != 780 {
		t.Errorf("默认日规则错误: %+v", rules)
	}
	if rules.MinRestMinutes != 660 || rules.MinRestNightMinutes != 720 {
		t.Errorf("默认休息规则错误: %+v", rules)
	}
	if cfg.DayCombo.MaxSize != 0 {
		t.Errorf("DayCombo.MaxSize = %d, want 0（取全部班段）", cfg.DayCombo.MaxSize)
	}
	if limits := cfg.DayCombo.Limits(); limits.MaxSubsets != 1<<18 || limits.MaxCombinations != 1024 {
		t.Errorf("默认分析上限错误: %+v", limits)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("SOLVER_TIME_LIMIT", "5s")
	t.Setenv("SOLVER_WORKERS", "4")
	t.Setenv("DAYCOMBO_MAX_SIZE", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d, want 8080", cfg.App.Port)
	}
	if got := cfg.Database.DSN(); got != "host=db.internal port=6543 user=paiban password= dbname=paiban sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr() != "localhost:6380" {
		t.Errorf("Redis 配置错误: %+v", cfg.Redis)
	}
	if cfg.Solver.TimeLimit != 5*time.Second || cfg.Solver.Workers != 4 {
		t.Errorf("Solver 配置错误: %+v", cfg.Solver)
	}
	if cfg.DayCombo.MaxSize != 2 {
		t.Errorf("DayCombo.MaxSize = %d, want 2", cfg.DayCombo.MaxSize)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"端口不是数字", "APP_PORT", "abc"},
		{"时长格式错误", "SOLVER_TIME_LIMIT", "soon"},
		{"并行数为零", "SOLVER_WORKERS", "0"},
		{"组合上限为负", "DAYCOMBO_MAX_SIZE", "-1"},
		{"组合数上限为零", "DAYCOMBO_MAX_COMBINATIONS", "0"},
		{"最长求解时间小于默认值", "SOLVER_MAX_TIME_LIMIT", "10s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s 应返回错误", tt.key, tt.value)
			}
		})
	}
}
