package planning

// LockKind 时槽锁定类型
type LockKind string

const (
	LockHard LockKind = "HARD" // 指定人员，无选择余地
	LockSoft LockKind = "SOFT" // 倾向保留基线，可变更
	LockNone LockKind = "NONE"
)

// SlotLock 时槽锁定，HARD 时 AgentID 为指定人员
type SlotLock struct {
	SlotID  int      `json:"slot_id"`
	Kind    LockKind `json:"kind"`
	AgentID int64    `json:"agent_id,omitempty"`
}

// MergeLocks 合并调用方硬锁定与基线软锁定，每个时槽一项
// 显式硬锁定优先；修复模式下基线组非空的时槽为软锁定；其余为无锁定
func MergeLocks(slots []Slot, mode Mode, hardLocks map[int]int64, baseline []BaselineGroup) []SlotLock {
	soft := make(map[GroupKey]bool, len(baseline))
	if mode == ModeRepair {
		for _, g := range baseline {
			if len(g.AgentIDs) > 0 {
				soft[g.Key] = true
			}
		}
	}

	locks := make([]SlotLock, len(slots))
	for i, s := range slots {
		switch agentID, ok := hardLocks[s.ID]; {
		case ok:
			locks[i] = SlotLock{SlotID: s.ID, Kind: LockHard, AgentID: agentID}
		case soft[s.Key()]:
			locks[i] = SlotLock{SlotID: s.ID, Kind: LockSoft}
		default:
			locks[i] = SlotLock{SlotID: s.ID, Kind: LockNone}
		}
	}
	return locks
}
