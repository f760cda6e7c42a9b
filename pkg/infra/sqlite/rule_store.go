package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"agrichain/advisor/common/model"
)

const ruleColumns = `id, crop, condition_desc, temp_min, temp_max, humidity_min, humidity_max,
	spoilage_time_hours, severity, source_name, source_type, source_reference, credibility`

// severityOrder 与 model.Severity.Rank 一致，未知等级排最后
const severityOrder = `CASE severity
		WHEN 'critical' THEN 1
		WHEN 'high' THEN 2
		WHEN 'medium' THEN 3
		WHEN 'low' THEN 4
		ELSE 5
	END`

// RuleStore 腐败规则库（实现 spoilage.RuleStore）
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore 创建规则库
func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

// Match 返回读数落在闭区间内的规则，按等级、腐败时长升序，最多 limit 条
func (s *RuleStore) Match(ctx context.Context, crop string, temperature, humidity float64, limit int) ([]model.SpoilageRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM spoilage_rules
	WHERE crop = ?
		AND temp_min <= ? AND temp_max >= ?
		AND humidity_min <= ? AND humidity_max >= ?
	ORDER BY ` + severityOrder + `, spoilage_time_hours ASC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query,
		normalizeCrop(crop), temperature, temperature, humidity, humidity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spoilage rules: %w", err)
	}
	return scanRules(rows)
}

// List 作物的全部规则（不按读数过滤）
func (s *RuleStore) List(ctx context.Context, crop string) ([]model.SpoilageRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM spoilage_rules
	WHERE crop = ?
	ORDER BY ` + severityOrder + `, spoilage_time_hours ASC`

	rows, err := s.db.QueryContext(ctx, query, normalizeCrop(crop))
	if err != nil {
		return nil, fmt.Errorf("failed to list spoilage rules: %w", err)
	}
	return scanRules(rows)
}

// Count 规则总数
func (s *RuleStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spoilage_rules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spoilage rules: %w", err)
	}
	return n, nil
}

// Seed 按 id 覆盖写入规则，返回写入条数
func (s *RuleStore) Seed(ctx context.Context, rules map[string][]model.SpoilageRule) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO spoilage_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare seed statement: %w", err)
	}
	defer stmt.Close()

	count := 0
	for crop, cropRules := range rules {
		for _, r := range cropRules {
			_, err := stmt.ExecContext(ctx,
				r.ID, normalizeCrop(crop), r.Condition,
				r.TempRange.Min, r.TempRange.Max, r.HumidityRange.Min, r.HumidityRange.Max,
				r.SpoilageTimeHours, string(r.Severity),
				r.Source.Name, r.Source.Type, r.Source.Reference, r.Source.Credibility)
			if err != nil {
				return 0, fmt.Errorf("failed to seed rule %s: %w", r.ID, err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed tx: %w", err)
	}
	return count, nil
}

func scanRules(rows *sql.Rows) ([]model.SpoilageRule, error) {
	defer rows.Close()

	rules := make([]model.SpoilageRule, 0)
	for rows.Next() {
		var (
			r        model.SpoilageRule
			crop     string
			severity string
		)
		if err := rows.Scan(&r.ID, &crop, &r.Condition,
			&r.TempRange.Min, &r.TempRange.Max, &r.HumidityRange.Min, &r.HumidityRange.Max,
			&r.SpoilageTimeHours, &severity,
			&r.Source.Name, &r.Source.Type, &r.Source.Reference, &r.Source.Credibility); err != nil {
			return nil, fmt.Errorf("failed to scan spoilage rule: %w", err)
		}
		r.Severity = model.Severity(severity)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spoilage rules: %w", err)
	}
	return rules, nil
}

func normalizeCrop(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}
