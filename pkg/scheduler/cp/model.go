// Package cp 提供 0/1 线性约束模型与精确分支定界求解
//
// 模型只包含布尔变量、线性约束（<= 或 ==）与线性最小化目标，
// 足以表达排班中的覆盖、锁定、每日一班、连续工作天数与变更计数。
package cp

import (
	"fmt"
	"sort"
)

// Var 布尔变量下标
type Var int

// Term 线性项 coef * var
type Term struct {
	Var  Var
	Coef int64
}

// Sense 约束方向
type Sense int

const (
	LessEqual Sense = iota
	Equal
)

// String 实现 fmt.Stringer
func (s Sense) String() string {
	if s == Equal {
		return "=="
	}
	return "<="
}

// Linear 线性约束 sum(terms) sense rhs
type Linear struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   int64
}

// Model 0/1 线性模型
type Model struct {
	names       []string
	constraints []Linear
	objective   []Term
	offset      int64
	err         error
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar 新建布尔变量
func (m *Model) NewBoolVar(name string) Var {
	m.names = append(m.names, name)
	return Var(len(m.names) - 1)
}

// NumVars 变量数
func (m *Model) NumVars() int {
	return len(m.names)
}

// NumConstraints 约束数
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Name 变量名
func (m *Model) Name(v Var) string {
	if int(v) < 0 || int(v) >= len(m.names) {
		return fmt.Sprintf("v%d", v)
	}
	return m.names[v]
}

// Constraints 返回约束列表（只读）
func (m *Model) Constraints() []Linear {
	return m.constraints
}

// AddLessOrEqual 添加 sum(terms) <= rhs
func (m *Model) AddLessOrEqual(name string, terms []Term, rhs int64) {
	m.add(name, terms, LessEqual, rhs)
}

// AddEqual 添加 sum(terms) == rhs
func (m *Model) AddEqual(name string, terms []Term, rhs int64) {
	m.add(name, terms, Equal, rhs)
}

// Fix 固定变量取值
func (m *Model) Fix(v Var, value bool) {
	var rhs int64
	if value {
		rhs = 1
	}
	m.add("fix:"+m.Name(v), []Term{{Var: v, Coef: 1}}, Equal, rhs)
}

// AddMaxEquality 约束 y == max(xs)，即 y 为 xs 的逻辑或
// 线性化为 x - y <= 0（每个 x）与 y - sum(xs) <= 0
func (m *Model) AddMaxEquality(name string, y Var, xs []Var) {
	sum := make([]Term, 0, len(xs)+1)
	sum = append(sum, Term{Var: y, Coef: 1})
	for _, x := range xs {
		m.add(name, []Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}}, LessEqual, 0)
		sum = append(sum, Term{Var: x, Coef: -1})
	}
	m.add(name, sum, LessEqual, 0)
}

// Minimize 设置最小化目标 sum(terms) + offset
func (m *Model) Minimize(terms []Term, offset int64) {
	m.objective = m.normalize("objective", terms)
	m.offset = offset
}

// Objective 返回目标项与常数项
func (m *Model) Objective() ([]Term, int64) {
	return m.objective, m.offset
}

func (m *Model) add(name string, terms []Term, sense Sense, rhs int64) {
	m.constraints = append(m.constraints, Linear{
		Name:  name,
		Terms: m.normalize(name, terms),
		Sense: sense,
		RHS:   rhs,
	})
}

// normalize 合并重复变量并去掉零系数，记录第一个越界变量
func (m *Model) normalize(name string, terms []Term) []Term {
	coefs := make(map[Var]int64, len(terms))
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(m.names) {
			if m.err == nil {
				m.err = fmt.Errorf("约束 %s 引用了不存在的变量 %d", name, t.Var)
			}
			continue
		}
		coefs[t.Var] += t.Coef
	}
	out := make([]Term, 0, len(coefs))
	for v, c := range coefs {
		if c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// Validate 检查模型结构是否有效
func (m *Model) Validate() error {
	if m.err != nil {
		return m.err
	}
	for _, c := range m.constraints {
		if c.Sense != LessEqual && c.Sense != Equal {
			return fmt.Errorf("约束 %s 方向无效: %d", c.Name, c.Sense)
		}
	}
	return nil
}

// Check 检查一组取值是否满足全部约束
func (m *Model) Check(values []bool) bool {
	if len(values) != len(m.names) {
		return false
	}
	for _, c := range m.constraints {
		if !c.satisfied(values) {
			return false
		}
	}
	return true
}

// Violations 返回不满足的约束名（调试用）
func (m *Model) Violations(values []bool) []string {
	var out []string
	if len(values) != len(m.names) {
		return []string{"取值长度与变量数不一致"}
	}
	for _, c := range m.constraints {
		if !c.satisfied(values) {
			out = append(out, c.Name)
		}
	}
	return out
}

// ObjectiveValue 计算目标值
func (m *Model) ObjectiveValue(values []bool) int64 {
	total := m.offset
	for _, t := range m.objective {
		if int(t.Var) < len(values) && values[t.Var] {
			total += t.Coef
		}
	}
	return total
}

func (c Linear) satisfied(values []bool) bool {
	var act int64
	for _, t := range c.Terms {
		if values[t.Var] {
			act += t.Coef
		}
	}
	if c.Sense == Equal {
		return act == c.RHS
	}
	return act <= c.RHS
}
