package service

import (
	"context"
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/engine"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/storage"
)

// Screener 实体筛查
type Screener interface {
	Run(ctx context.Context, opts engine.RunOptions) (*engine.Result, error)
	ScreenArticles(ctx context.Context, entity string, articles []model.Article) (*engine.Result, error)
}

// ReportReader 读取历史报告
type ReportReader interface {
	GetReport(ctx context.Context, id string) (*model.EntityReport, error)
	ListReports(ctx context.Context, entity string, limit int) ([]model.ReportSummary, error)
}

// ScreenRequest 按实体名检索新闻并筛查
type ScreenRequest struct {
	EntityName  string `json:"entity_name" validate:"required,max=200"`
	DaysBack    int    `json:"days_back" validate:"min=0,max=365"`
	MaxArticles int    `json:"max_articles" validate:"min=0,max=200"`
}

// ScreenArticlesRequest 筛查调用方提供的文章
type ScreenArticlesRequest struct {
	EntityName string          `json:"entity_name" validate:"required,max=200"`
	Articles   []model.Article `json:"articles" validate:"max=200"`
}

// ScreeningReply 筛查结果，未持久化时 id 为空
type ScreeningReply struct {
	ID     string              `json:"id,omitempty"`
	Report *model.EntityReport `json:"report"`
}

// ListReply 历史报告列表
type ListReply struct {
	Reports []model.ReportSummary `json:"reports"`
}

// ScreeningService 筛查 HTTP 服务的业务层
type ScreeningService struct {
	screener Screener
	reports  ReportReader
	validate *validator.Validate
	log      *log.Helper
}

// NewScreeningService reports 为 nil 时历史查询返回 503
func NewScreeningService(screener Screener, reports ReportReader, logger log.Logger) *ScreeningService {
	return &ScreeningService{
		screener: screener,
		reports:  reports,
		validate: validator.New(),
		log:      log.NewHelper(logger),
	}
}

func (s *ScreeningService) Screen(ctx context.Context, req *ScreenRequest) (*ScreeningReply, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("INVALID_REQUEST", err.Error())
	}
	res, err := s.screener.Run(ctx, engine.RunOptions{
		Entity:      req.EntityName,
		DaysBack:    req.DaysBack,
		MaxArticles: req.MaxArticles,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &ScreeningReply{ID: res.ID, Report: res.Report}, nil
}

func (s *ScreeningService) ScreenArticles(ctx context.Context, req *ScreenArticlesRequest) (*ScreeningReply, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.BadRequest("INVALID_REQUEST", err.Error())
	}
	res, err := s.screener.ScreenArticles(ctx, req.EntityName, req.Articles)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &ScreeningReply{ID: res.ID, Report: res.Report}, nil
}

func (s *ScreeningService) GetReport(ctx context.Context, id string) (*ScreeningReply, error) {
	if s.reports == nil {
		return nil, errors.ServiceUnavailable("STORAGE_DISABLED", "report storage is not configured")
	}
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &ScreeningReply{ID: id, Report: r}, nil
}

func (s *ScreeningService) ListReports(ctx context.Context, entity string, limit int) (*ListReply, error) {
	if s.reports == nil {
		return nil, errors.ServiceUnavailable("STORAGE_DISABLED", "report storage is not configured")
	}
	list, err := s.reports.ListReports(ctx, entity, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	if list == nil {
		list = []model.ReportSummary{}
	}
	return &ListReply{Reports: list}, nil
}

func (s *ScreeningService) mapError(err error) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound("REPORT_NOT_FOUND", err.Error())
	case stderrors.Is(err, engine.ErrEmptyEntity):
		return errors.BadRequest("INVALID_REQUEST", err.Error())
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.GatewayTimeout("SCREENING_ABORTED", err.Error())
	}
	s.log.Errorf("screening request failed: %v", err)
	return errors.InternalServer("SCREENING_FAILED", err.Error())
}
