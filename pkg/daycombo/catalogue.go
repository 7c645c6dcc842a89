package daycombo

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/paiban/planning/pkg/model"
)

// Catalogue 某岗位的组合目录：合法组合、休息兼容矩阵与班段指纹
type Catalogue struct {
	UnitID       int64            `json:"unit_id"`
	Fingerprint  string           `json:"fingerprint"`
	Combinations []DayCombination `json:"combinations"`
	Rest         *RestMatrix      `json:"rest"`

	index map[string]int
}

// Analyze 计算岗位的组合目录，不限制规模
func Analyze(unitID int64, segments []model.ShiftSegment, rules Rules, maxSize int) *Catalogue {
	c, _ := AnalyzeLimited(unitID, segments, rules, maxSize, Limits{})
	return c
}

// AnalyzeLimited 计算岗位的组合目录，超过 limits 时返回 ErrTooManyCombinations
func AnalyzeLimited(unitID int64, segments []model.ShiftSegment, rules Rules, maxSize int, limits Limits) (*Catalogue, error) {
	combos, err := EnumerateLimited(segments, rules, maxSize, limits)
	if err != nil {
		return nil, err
	}
	c := &Catalogue{
		UnitID:       unitID,
		Fingerprint:  Fingerprint(segments, rules, maxSize),
		Combinations: combos,
		Rest:         ComputeRestCompatibility(combos, rules),
	}
	c.reindex()
	return c, nil
}

func (c *Catalogue) reindex() {
	c.index = make(map[string]int, len(c.Combinations))
	for i, combo := range c.Combinations {
		c.index[combo.Key()] = i
	}
}

// UnmarshalJSON 反序列化后重建索引
func (c *Catalogue) UnmarshalJSON(data []byte) error {
	type alias Catalogue
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Catalogue(a)
	if c.Rest == nil {
		c.Rest = &RestMatrix{pairs: map[pair]struct{}{}}
	}
	c.reindex()
	return nil
}

// Find 校验一个单日班段分配，合法时返回对应组合
func (c *Catalogue) Find(segmentIDs []int64) (DayCombination, bool) {
	ids := append([]int64(nil), segmentIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	i, ok := c.index[segmentKey(ids)]
	if !ok {
		return DayCombination{}, false
	}
	return c.Combinations[i], true
}

// Fingerprint 计算班段集合、规则与组合上限的 FNV-1a 指纹，与输入顺序无关
func Fingerprint(segments []model.ShiftSegment, rules Rules, maxSize int) string {
	sorted := append([]model.ShiftSegment(nil), segments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := fnv.New64a()
	for _, s := range sorted {
		fmt.Fprintf(h, "%d:%d:%d;", s.ID, s.StartMinute, s.EndMinute)
	}
	fmt.Fprintf(h, "|%+v|%d", rules, maxSize)
	return fmt.Sprintf("%016x", h.Sum64())
}

type cacheKey struct {
	unitID      int64
	fingerprint string
}

// Cache 进程内组合目录缓存，以 (岗位, 指纹) 为键，可被并发只读共享
// capacity > 0 时超出容量按写入顺序淘汰最早的条目
type Cache struct {
	mu       sync.RWMutex
	items    map[cacheKey]*Catalogue
	order    []cacheKey
	capacity int
}

// NewCache 创建不限容量的缓存
func NewCache() *Cache {
	return NewBoundedCache(0)
}

// NewBoundedCache 创建最多保留 capacity 个目录的缓存
func NewBoundedCache(capacity int) *Cache {
	return &Cache{items: make(map[cacheKey]*Catalogue), capacity: capacity}
}

// Get 按岗位与指纹查询
func (c *Cache) Get(unitID int64, fingerprint string) (*Catalogue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.items[cacheKey{unitID, fingerprint}]
	return cat, ok
}

// Put 写入目录
func (c *Cache) Put(cat *Catalogue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{cat.UnitID, cat.Fingerprint}
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = cat

	for c.capacity > 0 && len(c.order) > c.capacity {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
}

// GetOrAnalyze 命中则返回缓存目录，否则按 limits 计算并写入；hit 表示是否命中
func (c *Cache) GetOrAnalyze(unitID int64, segments []model.ShiftSegment, rules Rules, maxSize int, limits Limits) (cat *Catalogue, hit bool, err error) {
	fp := Fingerprint(segments, rules, maxSize)
	if cat, ok := c.Get(unitID, fp); ok {
		return cat, true, nil
	}
	cat, err = AnalyzeLimited(unitID, segments, rules, maxSize, limits)
	if err != nil {
		return nil, false, err
	}
	c.Put(cat)
	return cat, false, nil
}

// Len 缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
