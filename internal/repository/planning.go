package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/planning/pkg/model"
)

// SolveRun 一次求解的运行记录
type SolveRun struct {
	ID             uuid.UUID              `json:"id"`
	Mode           string                 `json:"mode"`
	Status         string                 `json:"status"`
	Objective      int64                  `json:"objective"`
	StartDate      string                 `json:"start_date,omitempty"`
	EndDate        string                 `json:"end_date,omitempty"`
	SlotCount      int                    `json:"slot_count"`
	UncoveredCount int                    `json:"uncovered_count"`
	ChangeCount    int                    `json:"change_count"`
	Duration       time.Duration          `json:"duration"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// PlanningRepository 读取排班求解所需的快照并记录运行结果
type PlanningRepository struct {
	db DB
}

// NewPlanningRepository 创建排班仓储
func NewPlanningRepository(db DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// ListNeeds 查询日期范围内的需求
func (r *PlanningRepository) ListNeeds(ctx context.Context, dr DateRange) ([]model.Need, error) {
	query := `
		SELECT unit_id, to_char(date, 'YYYY-MM-DD'), tranche_id, required_count
		FROM needs
		WHERE date BETWEEN $1 AND $2 AND required_count > 0
		ORDER BY date, unit_id, tranche_id
	`

	rows, err := r.db.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, dbError("查询需求", err)
	}
	defer rows.Close()

	var needs []model.Need
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, dbError("读取需求", err)
		}
		needs = append(needs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历需求", err)
	}
	return needs, nil
}

// ListAgents 查询在岗人员及其岗位资质
func (r *PlanningRepository) ListAgents(ctx context.Context) ([]model.Agent, error) {
	query := `
		SELECT a.id, a.name,
			COALESCE(array_agg(q.unit_id ORDER BY q.unit_id) FILTER (WHERE q.unit_id IS NOT NULL), '{}')
		FROM agents a
		LEFT JOIN agent_qualifications q ON q.agent_id = a.id
		WHERE a.deleted_at IS NULL
		GROUP BY a.id, a.name
		ORDER BY a.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbError("查询人员", err)
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, dbError("读取人员", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历人员", err)
	}
	return agents, nil
}

// ListAgentDays 查询日期范围内的人员日类型
func (r *PlanningRepository) ListAgentDays(ctx context.Context, dr DateRange) ([]model.AgentDay, error) {
	query := `
		SELECT agent_id, to_char(date, 'YYYY-MM-DD'), type
		FROM agent_days
		WHERE date BETWEEN $1 AND $2
		ORDER BY agent_id, date
	`

	rows, err := r.db.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, dbError("查询人员日类型", err)
	}
	defer rows.Close()

	var days []model.AgentDay
	for rows.Next() {
		var d model.AgentDay
		var dayType string
		if err := rows.Scan(&d.AgentID, &d.Date, &dayType); err != nil {
			return nil, dbError("读取人员日类型", err)
		}
		d.Type = model.DayType(dayType)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历人员日类型", err)
	}
	return days, nil
}

// ListTranches 查询全部时段，unit_id 为 NULL 时记为 0
func (r *PlanningRepository) ListTranches(ctx context.Context) (map[int64]model.Tranche, error) {
	query := `
		SELECT id, unit_id, name, start_minute, end_minute
		FROM tranches
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbError("查询时段", err)
	}
	defer rows.Close()

	tranches := make(map[int64]model.Tranche)
	for rows.Next() {
		t, err := scanTranche(rows)
		if err != nil {
			return nil, dbError("读取时段", err)
		}
		tranches[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历时段", err)
	}
	return tranches, nil
}

// ListAssignments 查询日期范围内的既有排班
func (r *PlanningRepository) ListAssignments(ctx context.Context, dr DateRange) ([]model.Assignment, error) {
	query := `
		SELECT agent_id, tranche_id, to_char(date, 'YYYY-MM-DD')
		FROM assignments
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, tranche_id, agent_id
	`

	rows, err := r.db.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, dbError("查询既有排班", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.AgentID, &a.TrancheID, &a.Date); err != nil {
			return nil, dbError("读取既有排班", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历既有排班", err)
	}
	return assignments, nil
}

// ListSegments 查询岗位的班段
func (r *PlanningRepository) ListSegments(ctx context.Context, unitID int64) ([]model.ShiftSegment, error) {
	query := `
		SELECT id, unit_id, name, start_minute, end_minute
		FROM shift_segments
		WHERE unit_id = $1
		ORDER BY start_minute, end_minute, id
	`

	rows, err := r.db.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, dbError("查询班段", err)
	}
	defer rows.Close()

	var segments []model.ShiftSegment
	for rows.Next() {
		var s model.ShiftSegment
		if err := rows.Scan(&s.ID, &s.UnitID, &s.Name, &s.StartMinute, &s.EndMinute); err != nil {
			return nil, dbError("读取班段", err)
		}
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("遍历班段", err)
	}
	return segments, nil
}

// ListUnitIDs 查询所有岗位ID
func (r *PlanningRepository) ListUnitIDs(ctx context.Context) ([]int64, error) {
	var ids pq.Int64Array
	query := `SELECT COALESCE(array_agg(id ORDER BY id), '{}') FROM units`
	if err := r.db.QueryRowContext(ctx, query).Scan(&ids); err != nil {
		return nil, dbError("查询岗位", err)
	}
	return []int64(ids), nil
}

// SaveSolveRun 记录一次求解
func (r *PlanningRepository) SaveSolveRun(ctx context.Context, run *SolveRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	metaJSON, err := json.Marshal(run.Metadata)
	if err != nil {
		return dbError("序列化运行元数据", err)
	}

	query := `
		INSERT INTO solve_runs (
			id, mode, status, objective, start_date, end_date,
			slot_count, uncovered_count, change_count, duration_ms, metadata, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Mode, run.Status, run.Objective, run.StartDate, run.EndDate,
		run.SlotCount, run.UncoveredCount, run.ChangeCount, run.Duration.Milliseconds(),
		metaJSON, run.CreatedAt,
	)
	if err != nil {
		return dbError("记录求解运行", err)
	}
	return nil
}

func scanNeed(s Scanner) (model.Need, error) {
	var n model.Need
	err := s.Scan(&n.UnitID, &n.Date, &n.TrancheID, &n.RequiredCount)
	return n, err
}

func scanAgent(s Scanner) (model.Agent, error) {
	var a model.Agent
	var units pq.Int64Array
	if err := s.Scan(&a.ID, &a.Name, &units); err != nil {
		return a, err
	}
	for _, u := range units {
		a.Qualifications = append(a.Qualifications, model.Qualification{UnitID: u})
	}
	return a, nil
}

func scanTranche(s Scanner) (model.Tranche, error) {
	var t model.Tranche
	var unitID sql.NullInt64
	if err := s.Scan(&t.ID, &unitID, &t.Name, &t.StartMinute, &t.EndMinute); err != nil {
		return t, err
	}
	if unitID.Valid {
		t.UnitID = unitID.Int64
	}
	return t, nil
}
