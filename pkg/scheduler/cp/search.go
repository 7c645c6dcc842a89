package cp

import (
	"math/rand"
	"time"
)

// deadlineCheckInterval 每搜索多少个节点检查一次时限
const deadlineCheckInterval = 256

type occurrence struct {
	con  int
	coef int64
}

// searcher 单个搜索协程的状态：变量取值、约束活动度上下界与回溯轨迹
//
// 目标函数作为最后一条 <= 约束参与传播，右端为 best-1-offset，随共享最优解收紧。
type searcher struct {
	worker   int
	inc      *incumbent
	cons     []Linear
	objCon   int
	offset   int64
	occ      [][]occurrence
	order    []Var
	prefer   []bool // 优先尝试的取值
	val      []int8 // -1 未赋值
	minAct   []int64
	maxAct   []int64
	trail    []Var
	queue    []int
	queued   []bool
	deadline time.Time
	nodes    int64
	values   []bool
}

func searchOrder(m *Model, worker int, seed int64) []Var {
	order := make([]Var, m.NumVars())
	for i := range order {
		order[i] = Var(i)
	}
	if worker == 0 && seed == 0 {
		return order
	}
	r := rand.New(rand.NewSource(seed + int64(worker)))
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

func newSearcher(m *Model, inc *incumbent, worker int, order []Var, deadline time.Time) *searcher {
	objTerms, offset := m.Objective()
	cons := make([]Linear, 0, len(m.constraints)+1)
	cons = append(cons, m.constraints...)
	cons = append(cons, Linear{Name: "objective", Terms: objTerms, Sense: LessEqual})

	n := m.NumVars()
	s := &searcher{
		worker:   worker,
		inc:      inc,
		cons:     cons,
		objCon:   len(cons) - 1,
		offset:   offset,
		occ:      make([][]occurrence, n),
		order:    order,
		prefer:   make([]bool, n),
		val:      make([]int8, n),
		minAct:   make([]int64, len(cons)),
		maxAct:   make([]int64, len(cons)),
		queued:   make([]bool, len(cons)),
		deadline: deadline,
		values:   make([]bool, n),
	}
	for i := range s.val {
		s.val[i] = -1
		s.prefer[i] = true
	}
	for ci, c := range cons {
		for _, t := range c.Terms {
			s.occ[t.Var] = append(s.occ[t.Var], occurrence{con: ci, coef: t.Coef})
			if t.Coef < 0 {
				s.minAct[ci] += t.Coef
			} else {
				s.maxAct[ci] += t.Coef
			}
		}
	}
	for _, t := range objTerms {
		s.prefer[t.Var] = t.Coef < 0
	}
	return s
}

// rhs 约束右端；目标约束随当前最优解变化
func (s *searcher) rhs(ci int) int64 {
	if ci == s.objCon {
		best := s.inc.bound()
		if best == noIncumbent {
			return noIncumbent
		}
		return best - 1 - s.offset
	}
	return s.cons[ci].RHS
}

// run 执行完整搜索，返回是否在未被中止的情况下穷尽了搜索树
func (s *searcher) run() bool {
	for ci := range s.cons {
		s.enqueue(ci)
	}
	if !s.propagate() {
		return !s.inc.stop.Load()
	}
	s.dfs(0)
	return !s.inc.stop.Load()
}

func (s *searcher) stopped() bool {
	if s.inc.stop.Load() {
		return true
	}
	if !s.deadline.IsZero() && s.nodes%deadlineCheckInterval == 0 && time.Now().After(s.deadline) {
		s.inc.stop.Store(true)
		return true
	}
	return false
}

func (s *searcher) dfs(pos int) {
	s.nodes++
	if s.stopped() {
		return
	}
	for pos < len(s.order) && s.val[s.order[pos]] >= 0 {
		pos++
	}
	if pos == len(s.order) {
		s.record()
		return
	}

	v := s.order[pos]
	first := s.prefer[v]
	for _, value := range [2]bool{first, !first} {
		mark := len(s.trail)
		s.enqueue(s.objCon)
		if s.assign(v, value) && s.propagate() {
			s.dfs(pos + 1)
		}
		s.undo(mark)
		if s.inc.stop.Load() {
			return
		}
	}
}

// record 全部变量已赋值且未冲突，即为可行解
func (s *searcher) record() {
	obj := s.offset
	for i, x := range s.val {
		s.values[i] = x == 1
	}
	for _, t := range s.cons[s.objCon].Terms {
		if s.values[t.Var] {
			obj += t.Coef
		}
	}
	s.inc.offer(s.worker, obj, s.values, s.nodes)
}

func (s *searcher) enqueue(ci int) {
	if !s.queued[ci] {
		s.queued[ci] = true
		s.queue = append(s.queue, ci)
	}
}

// assign 赋值并更新活动度，返回是否无直接冲突
func (s *searcher) assign(v Var, value bool) bool {
	if s.val[v] >= 0 {
		return (s.val[v] == 1) == value
	}
	if value {
		s.val[v] = 1
	} else {
		s.val[v] = 0
	}
	s.trail = append(s.trail, v)
	for _, o := range s.occ[v] {
		if value {
			if o.coef > 0 {
				s.minAct[o.con] += o.coef
			} else {
				s.maxAct[o.con] += o.coef
			}
		} else {
			if o.coef < 0 {
				s.minAct[o.con] -= o.coef
			} else {
				s.maxAct[o.con] -= o.coef
			}
		}
		s.enqueue(o.con)
	}
	return true
}

// undo 回溯到轨迹位置 mark
func (s *searcher) undo(mark int) {
	for len(s.trail) > mark {
		v := s.trail[len(s.trail)-1]
		s.trail = s.trail[:len(s.trail)-1]
		value := s.val[v] == 1
		for _, o := range s.occ[v] {
			if value {
				if o.coef > 0 {
					s.minAct[o.con] -= o.coef
				} else {
					s.maxAct[o.con] -= o.coef
				}
			} else {
				if o.coef < 0 {
					s.minAct[o.con] += o.coef
				} else {
					s.maxAct[o.con] += o.coef
				}
			}
		}
		s.val[v] = -1
	}
	s.clearQueue()
}

func (s *searcher) clearQueue() {
	for _, ci := range s.queue {
		s.queued[ci] = false
	}
	s.queue = s.queue[:0]
}

// propagate 对队列中的约束做边界传播直到不动点，返回是否无冲突
func (s *searcher) propagate() bool {
	for len(s.queue) > 0 {
		ci := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[ci] = false
		if !s.propagateOne(ci) {
			s.clearQueue()
			return false
		}
	}
	s.queue = s.queue[:0]
	return true
}

func (s *searcher) propagateOne(ci int) bool {
	c := &s.cons[ci]
	rhs := s.rhs(ci)
	if s.minAct[ci] > rhs {
		return false
	}
	if c.Sense == Equal && s.maxAct[ci] < rhs {
		return false
	}

	slack := rhs - s.minAct[ci]
	surplus := s.maxAct[ci] - rhs
	for _, t := range c.Terms {
		if s.val[t.Var] >= 0 {
			continue
		}
		a := t.Coef
		var force, value bool
		// 上界：取值后最小活动度不得超过 rhs
		if a > 0 && a > slack {
			force, value = true, false
		} else if a < 0 && -a > slack {
			force, value = true, true
		}
		// 下界（仅等式）：取值后最大活动度不得低于 rhs
		if !force && c.Sense == Equal {
			if a > 0 && a > surplus {
				force, value = true, true
			} else if a < 0 && -a > surplus {
				force, value = true, false
			}
		}
		if !force {
			continue
		}
		s.assign(t.Var, value)
		// 本约束的边界已变化，重新计算
		if s.minAct[ci] > rhs || (c.Sense == Equal && s.maxAct[ci] < rhs) {
			return false
		}
		slack = rhs - s.minAct[ci]
		surplus = s.maxAct[ci] - rhs
	}
	return true
}
