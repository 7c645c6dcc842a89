package cp

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paiban/planning/pkg/logger"
)

// Status 求解状态
type Status string

const (
	StatusOptimal      Status = "OPTIMAL"       // 搜索完成且有解
	StatusFeasible     Status = "FEASIBLE"      // 超时但已有解
	StatusInfeasible   Status = "INFEASIBLE"    // 搜索完成且无解
	StatusUnknown      Status = "UNKNOWN"       // 超时且无解
	StatusModelInvalid Status = "MODEL_INVALID" // 模型结构无效
)

// Params 求解参数
type Params struct {
	TimeLimit time.Duration // <= 0 表示不限时
	Workers   int           // 并行搜索协程数，<= 0 视为 1
	Seed      int64         // 0 表示 0 号协程按自然顺序搜索
	Log       bool          // 记录每次找到的更优解
	Hint      []bool        // 可行时作为初始最优解
}

// Result 求解结果
type Result struct {
	Status    Status        `json:"status"`
	Objective int64         `json:"objective"`
	Values    []bool        `json:"-"`
	Nodes     int64         `json:"nodes"`
	WallTime  time.Duration `json:"wall_time"`
	Err       error         `json:"-"` // MODEL_INVALID 的原因
}

// Value 读取变量取值
func (r *Result) Value(v Var) bool {
	return int(v) < len(r.Values) && r.Values[v]
}

const noIncumbent = math.MaxInt64 / 4

// incumbent 协程间共享的当前最优解
type incumbent struct {
	mu        sync.Mutex
	objective atomic.Int64
	values    []bool
	stop      atomic.Bool
	done      atomic.Bool
	log       *logger.SolverLogger
}

func newIncumbent() *incumbent {
	inc := &incumbent{}
	inc.objective.Store(noIncumbent)
	return inc
}

// bound 当前最优目标值，无解时为极大值
func (inc *incumbent) bound() int64 {
	return inc.objective.Load()
}

// offer 提交一个完整可行解，更优时替换
func (inc *incumbent) offer(worker int, objective int64, values []bool, nodes int64) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if objective >= inc.objective.Load() {
		return
	}
	inc.values = append(inc.values[:0], values...)
	inc.objective.Store(objective)
	if inc.log != nil {
		inc.log.Incumbent(worker, objective, nodes)
	}
}

// Solve 精确求解模型
//
// 多协程并行时各协程以不同变量顺序搜索同一棵树，共享最优解用于剪枝；
// 任一协程完成搜索即证明最优（或无解），其余协程随之停止。
func Solve(m *Model, p Params) *Result {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return &Result{Status: StatusModelInvalid, Err: err, WallTime: time.Since(start)}
	}

	inc := newIncumbent()
	if p.Log {
		inc.log = logger.NewSolverLogger()
	}
	if len(p.Hint) == m.NumVars() && m.Check(p.Hint) {
		inc.offer(-1, m.ObjectiveValue(p.Hint), p.Hint, 0)
	}

	var deadline time.Time
	if p.TimeLimit > 0 {
		deadline = start.Add(p.TimeLimit)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	if limit := runtime.GOMAXPROCS(0) * 2; workers > limit {
		workers = limit
	}

	var nodes atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			s := newSearcher(m, inc, w, searchOrder(m, w, p.Seed), deadline)
			if s.run() {
				inc.done.Store(true)
				inc.stop.Store(true)
			}
			nodes.Add(s.nodes)
		}(w)
	}
	wg.Wait()

	res := &Result{Nodes: nodes.Load(), WallTime: time.Since(start)}
	found := inc.bound() != noIncumbent
	switch {
	case inc.done.Load() && found:
		res.Status = StatusOptimal
	case inc.done.Load():
		res.Status = StatusInfeasible
	case found:
		res.Status = StatusFeasible
	default:
		res.Status = StatusUnknown
	}
	if found {
		res.Objective = inc.bound()
		res.Values = append([]bool(nil), inc.values...)
	}
	return res
}
