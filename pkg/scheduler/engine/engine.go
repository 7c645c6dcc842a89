// Package engine 将排班实例建模为 0/1 约束模型并精确求解
package engine

import (
	"time"

	"github.com/paiban/planning/pkg/logger"
	"github.com/paiban/planning/pkg/planning"
	"github.com/paiban/planning/pkg/scheduler/cp"
)

// Weights 目标函数权重
type Weights struct {
	Uncovered int64 `json:"uncovered"`
	Change    int64 `json:"change"`
}

// DefaultWeights 按模式返回默认权重；覆盖需求始终优先于保留基线
func DefaultWeights(mode planning.Mode) Weights {
	if mode == planning.ModeRepair {
		return Weights{Uncovered: 10000, Change: 1000}
	}
	return Weights{Uncovered: 10000, Change: 100}
}

// Params 求解参数
type Params struct {
	TimeLimit          time.Duration
	Workers            int
	MaxConsecutiveDays int // <= 0 不限制
	Log                bool
	Seed               int64
	Weights            *Weights // nil 使用 DefaultWeights
}

// Solve 构建模型并求解
//
// 只有配置或数据不一致（如硬锁定人员不是候选）才返回错误；
// 无解、超时等求解结果通过 Solution.Status 返回。
func Solve(inst *planning.Instance, p Params) (*planning.Solution, error) {
	log := logger.NewSolverLogger()
	start := time.Now()

	weights := DefaultWeights(inst.Mode)
	if p.Weights != nil {
		weights = *p.Weights
	}

	b, err := build(inst, weights, p.MaxConsecutiveDays)
	if err != nil {
		return nil, err
	}
	log.StartSolve(string(inst.Mode), len(inst.Agents), len(inst.Slots), b.model.NumVars())

	res := cp.Solve(b.model, cp.Params{
		TimeLimit: p.TimeLimit,
		Workers:   p.Workers,
		Seed:      p.Seed,
		Log:       p.Log,
		Hint:      greedyHint(inst, b, p.MaxConsecutiveDays),
	})

	var sol *planning.Solution
	switch res.Status {
	case cp.StatusOptimal, cp.StatusFeasible:
		sol = b.extract(res)
	case cp.StatusModelInvalid:
		log.ModelInvalid(res.Err)
		sol = planning.EmptySolution(planning.StatusModelInvalid)
	default:
		// 超时且无解与证明无解对调用方相同：没有可用结果
		sol = planning.EmptySolution(planning.StatusInfeasible)
	}
	sol.WallTime = time.Since(start)

	log.SolveComplete(string(sol.Status), sol.WallTime, sol.Objective, len(sol.Uncovered))
	return sol, nil
}
