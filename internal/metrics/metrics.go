// Package metrics 提供Prometheus文本格式的进程内监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名
const (
	HTTPRequestsTotal   = "paiban_http_requests_total"
	HTTPRequestDuration = "paiban_http_request_duration_seconds"
	SolveTotal          = "paiban_solve_total"
	SolveDuration       = "paiban_solve_duration_seconds"
	SolveUncovered      = "paiban_solve_uncovered_slots"
	SolveChanges        = "paiban_solve_changes"
	ActiveSolves        = "paiban_active_solves"
	ComboLookupsTotal   = "paiban_daycombo_lookups_total"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
		registerDefaults(registry)
	})
	return registry
}

func registerDefaults(r *Registry) {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60})

	r.NewCounter(SolveTotal, "求解次数", []string{"mode", "status"})
	r.NewHistogram(SolveDuration, "求解耗时",
		[]string{"mode"},
		[]float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120})
	r.NewGauge(SolveUncovered, "最近一次求解的未覆盖时槽数", []string{"mode"})
	r.NewGauge(SolveChanges, "最近一次求解的基线变更数", []string{"mode"})
	r.NewGauge(ActiveSolves, "进行中的求解数", nil)

	r.NewCounter(ComboLookupsTotal, "组合目录查询次数", []string{"source"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.counters[name] = c
	return c
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.gauges[name] = g
	return g
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = h
	return h
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, ok := h.counts[key]; !ok {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
			break
		}
	}
	h.counts[key][len(h.Buckets)]++
	h.sums[key] += value
}

// Count 返回某组标签下的观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts, ok := h.counts[labelKey(labelValues)]
	if !ok {
		return 0
	}
	return counts[len(h.Buckets)]
}

// labelKey 标签值以 \x1f 连接，避免与值中的逗号冲突
func labelKey(labels []string) string {
	return strings.Join(labels, "\x1f")
}

func formatLabels(names []string, key string, extra ...string) string {
	vals := strings.Split(key, "\x1f")
	parts := make([]string, 0, len(names)+len(extra)/2)
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", name, val))
	}
	for i := 0; i+1 < len(extra); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%q", extra[i], extra[i+1]))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTo 以Prometheus文本格式输出全部指标，按名称排序
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			fmt.Fprintf(w, "%s%s %s\n", c.Name, formatLabels(c.Labels, key), formatFloat(c.values[key]))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			fmt.Fprintf(w, "%s%s %s\n", g.Name, formatLabels(g.Labels, key), formatFloat(g.values[key]))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedKeys(h.counts) {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(w, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, "le", formatFloat(bucket)), cumulative)
			}
			total := counts[len(h.Buckets)]
			fmt.Fprintf(w, "%s_bucket%s %d\n", h.Name, formatLabels(h.Labels, key, "le", "+Inf"), total)
			fmt.Fprintf(w, "%s_sum%s %s\n", h.Name, formatLabels(h.Labels, key), formatFloat(h.sums[key]))
			fmt.Fprintf(w, "%s_count%s %d\n", h.Name, formatLabels(h.Labels, key), total)
		}
		h.mu.RUnlock()
	}
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().WriteTo(w)
	})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	reg := GetRegistry()
	reg.GetCounter(HTTPRequestsTotal).Inc(method, path, strconv.Itoa(status))
	reg.GetHistogram(HTTPRequestDuration).Observe(duration.Seconds(), method, path)
}

// RecordSolve 记录一次求解结果
func RecordSolve(mode, status string, duration time.Duration, uncovered, changes int) {
	reg := GetRegistry()
	reg.GetCounter(SolveTotal).Inc(mode, status)
	reg.GetHistogram(SolveDuration).Observe(duration.Seconds(), mode)
	reg.GetGauge(SolveUncovered).Set(float64(uncovered), mode)
	reg.GetGauge(SolveChanges).Set(float64(changes), mode)
}

// SolveStarted 进行中求解数加一，返回的函数在求解结束时调用
func SolveStarted() func() {
	g := GetRegistry().GetGauge(ActiveSolves)
	g.Add(1)
	return func() { g.Add(-1) }
}

// RecordComboLookup 记录组合目录来源：memory、redis 或 computed
func RecordComboLookup(source string) {
	GetRegistry().GetCounter(ComboLookupsTotal).Inc(source)
}
