package service

import (
	"context"
	"errors"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/engine"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/storage"
)

// mockScreener 模拟筛查引擎
type mockScreener struct {
	err error
}

func (m *mockScreener) Run(ctx context.Context, opts engine.RunOptions) (*engine.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &engine.Result{ID: "id-1", Report: &model.EntityReport{EntityName: opts.Entity, OverallSeverity: 42}}, nil
}

func (m *mockScreener) ScreenArticles(ctx context.Context, entity string, articles []model.Article) (*engine.Result, error) {
	return &engine.Result{Report: &model.EntityReport{EntityName: entity, ArticlesAnalyzed: len(articles)}}, nil
}

// mockReportRepo 模拟报告仓库
type mockReportRepo struct{}

func (m *mockReportRepo) GetReport(ctx context.Context, id string) (*model.EntityReport, error) {
	if id != "id-1" {
		return nil, storage.ErrNotFound
	}
	return &model.EntityReport{EntityName: "Acme"}, nil
}

func (m *mockReportRepo) ListReports(ctx context.Context, entity string, limit int) ([]model.ReportSummary, error) {
	return nil, nil
}

func TestScreeningService_Screen(t *testing.T) {
	s := NewScreeningService(&mockScreener{}, &mockReportRepo{}, log.DefaultLogger)

	reply, err := s.Screen(context.Background(), &ScreenRequest{EntityName: "Acme", DaysBack: 30})
	if err != nil {
		t.Fatalf("Screen() error = %v", err)
	}
	if reply.ID != "id-1" || reply.Report.OverallSeverity != 42 {
		t.Errorf("Screen() reply = %+v", reply)
	}
}

func TestScreeningService_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"empty entity", engine.ErrEmptyEntity, 400},
		{"cancelled", context.Canceled, 504},
		{"fetch failed", errors.New("fetch articles: rss down"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScreeningService(&mockScreener{err: tt.err}, nil, log.DefaultLogger)
			_, err := s.Screen(context.Background(), &ScreenRequest{EntityName: "Acme"})
			if got := kerrors.Code(err); got != tt.code {
				t.Errorf("Screen() code = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestScreeningService_GetReport(t *testing.T) {
	s := NewScreeningService(&mockScreener{}, &mockReportRepo{}, log.DefaultLogger)

	if _, err := s.GetReport(context.Background(), "id-1"); err != nil {
		t.Errorf("GetReport() error = %v", err)
	}
	_, err := s.GetReport(context.Background(), "missing")
	if !kerrors.IsNotFound(err) {
		t.Errorf("GetReport() error = %v, want not found", err)
	}
}

func TestScreeningService_ListReportsNeverNil(t *testing.T) {
	s := NewScreeningService(&mockScreener{}, &mockReportRepo{}, log.DefaultLogger)

	reply, err := s.ListReports(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if reply.Reports == nil {
		t.Errorf("ListReports() returned nil slice")
	}
}

func TestScreeningService_Validation(t *testing.T) {
	s := NewScreeningService(&mockScreener{}, nil, log.DefaultLogger)

	_, err := s.ScreenArticles(context.Background(), &ScreenArticlesRequest{EntityName: ""})
	if !kerrors.IsBadRequest(err) {
		t.Errorf("ScreenArticles() error = %v, want bad request", err)
	}
	if _, err := s.ListReports(context.Background(), "", 0); kerrors.Code(err) != 503 {
		t.Errorf("ListReports() without storage error = %v, want 503", err)
	}
}
