package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// ErrNotFound 报告不存在
var ErrNotFound = errors.New("screening report not found")

const table = "screenings"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS screenings (
    id                UUID PRIMARY KEY,
    entity_name       TEXT        NOT NULL,
    screening_date    TIMESTAMPTZ NOT NULL,
    articles_analyzed INT         NOT NULL,
    overall_severity  INT         NOT NULL,
    primary_risk      TEXT        NOT NULL DEFAULT '',
    high_risk_count   INT         NOT NULL DEFAULT 0,
    report            JSONB       NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS screenings_entity_date_idx ON screenings (lower(entity_name), screening_date DESC);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var summaryColumns = []string{
	"id", "entity_name", "screening_date", "articles_analyzed", "overall_severity", "primary_risk", "high_risk_count",
}

// Storage 筛查报告的 Postgres 持久化
type Storage struct {
	db    *sql.DB
	newID func() uuid.UUID
}

// NewStorage 连接数据库并建表
func NewStorage(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// New 基于已有连接创建存储
func New(db *sql.DB) *Storage {
	return &Storage{db: db, newID: uuid.New}
}

// Migrate 创建表和索引
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveReport 保存报告，返回生成的 ID
func (s *Storage) SaveReport(ctx context.Context, report *model.EntityReport) (string, error) {
	id := s.newID()
	query, args, err := insertReportQuery(id, sanitizeReport(report))
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert screening: %w", err)
	}
	return id.String(), nil
}

// GetReport 按 ID 读取完整报告
func (s *Storage) GetReport(ctx context.Context, id string) (*model.EntityReport, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	query, args, err := getReportQuery(parsed)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query screening: %w", err)
	}

	var report model.EntityReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode screening %s: %w", id, err)
	}
	return &report, nil
}

// ListReports 按时间倒序列出报告摘要，entity 为空时不过滤
func (s *Storage) ListReports(ctx context.Context, entity string, limit int) ([]model.ReportSummary, error) {
	query, args, err := listReportsQuery(entity, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query screenings: %w", err)
	}
	defer rows.Close()

	var out []model.ReportSummary
	for rows.Next() {
		var (
			r    model.ReportSummary
			date time.Time
		)
		if err := rows.Scan(&r.ID, &r.EntityName, &date, &r.ArticlesAnalyzed, &r.OverallSeverity, &r.PrimaryRisk, &r.HighRiskCount); err != nil {
			return nil, fmt.Errorf("scan screening: %w", err)
		}
		r.ScreeningDate = date.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func insertReportQuery(id uuid.UUID, report *model.EntityReport) (string, []any, error) {
	doc, err := json.Marshal(report)
	if err != nil {
		return "", nil, fmt.Errorf("encode report: %w", err)
	}
	return psql.Insert(table).
		Columns(append(summaryColumns, "report")...).
		Values(
			id.String(),
			report.EntityName,
			report.ScreeningDate,
			report.ArticlesAnalyzed,
			report.OverallSeverity,
			report.PrimaryRisk,
			len(report.HighRiskArticles),
			string(doc),
		).
		ToSql()
}

func getReportQuery(id uuid.UUID) (string, []any, error) {
	return psql.Select("report").From(table).Where(sq.Eq{"id": id.String()}).ToSql()
}

const defaultListLimit = 50

func listReportsQuery(entity string, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := psql.Select(summaryColumns...).From(table)
	if e := strings.TrimSpace(entity); e != "" {
		q = q.Where(sq.Expr("lower(entity_name) = lower(?)", e))
	}
	return q.OrderBy("screening_date DESC").Limit(uint64(limit)).ToSql()
}

// sanitizeReport 返回清理后的副本：PostgreSQL 的 TEXT/JSONB 不接受 NULL 字节和非法 UTF-8
func sanitizeReport(r *model.EntityReport) *model.EntityReport {
	out := *r
	out.EntityName = cleanText(r.EntityName)
	out.AllAssessments = sanitizeAssessments(r.AllAssessments)
	out.HighRiskArticles = sanitizeAssessments(r.HighRiskArticles)
	return &out
}

func sanitizeAssessments(in []model.ArticleAssessment) []model.ArticleAssessment {
	if in == nil {
		return nil
	}
	out := make([]model.ArticleAssessment, len(in))
	for i, a := range in {
		a = a.Clone()
		a.Explanation = cleanText(a.Explanation)
		a.ArticleTitle = cleanText(a.ArticleTitle)
		a.ArticleURL = cleanText(a.ArticleURL)
		a.Source = cleanText(a.Source)
		a.PublishDate = cleanText(a.PublishDate)
		for j := range a.KeySentences {
			a.KeySentences[j].Sentence = cleanText(a.KeySentences[j].Sentence)
		}
		out[i] = a
	}
	return out
}

func cleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
