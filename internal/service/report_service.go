package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/observability"
	"github.com/wecan-app/wecan-api/internal/repository"
)

const reportDedupeTTL = 10 * time.Minute

var (
	// ErrSelfReport indicates a user attempted to report themselves.
	ErrSelfReport = errors.New("cannot report yourself")
	// ErrDuplicateReport indicates an identical report was filed moments ago.
	ErrDuplicateReport = errors.New("report already filed")
	// ErrReportNotFound indicates no report exists with the given id.
	ErrReportNotFound = errors.New("report not found")
)

// ReportService is the report ledger: it files abuse reports and support
// requests with identity snapshots and drives the moderation review queue.
type ReportService interface {
	File(ctx context.Context, reporterID string, req dto.ReportCreateRequest) (dto.ReportResponse, error)
	RequestSupport(ctx context.Context, reporterID string, req dto.SupportRequest) (dto.ReportResponse, error)
	List(ctx context.Context, status string, page, pageSize int) (dto.ReportListResponse, error)
	UpdateStatus(ctx context.Context, actorID, reportID string, req dto.ReportStatusUpdateRequest) (dto.ReportResponse, error)
}

type reportService struct {
	reports     repository.ReportRepository
	users       repository.UserRepository
	audit       repository.ModerationLogRepository
	redis       *redis.Client
	dedupeBase  string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewReportService constructs the report ledger. Redis is optional and only
// used to suppress rapid duplicate filings.
func NewReportService(reports repository.ReportRepository, users repository.UserRepository, audit repository.ModerationLogRepository, redisClient *redis.Client, channelBase string, validate *validator.Validate, logger zerolog.Logger) ReportService {
	dedupeBase := ""
	if channelBase != "" {
		dedupeBase = channelBase + ":reports:dedupe"
	}
	return &reportService{
		reports:    reports,
		users:      users,
		audit:      audit,
		redis:      redisClient,
		dedupeBase: dedupeBase,
		validator:  validate,
		logger:     logger.With().Str("component", "report_service").Logger(),
		tracer:     otel.Tracer("github.com/wecan-app/wecan-api/internal/service/report"),
	}
}

// File records an abuse report against another user. Reporter and reported
// identities are snapshotted so the ledger stays readable after account
// deletion.
func (s *reportService) File(ctx context.Context, reporterID string, req dto.ReportCreateRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReportResponse{}, err
	}

	if req.ReportedID == reporterID {
		return dto.ReportResponse{}, ErrSelfReport
	}

	reporter, err := s.users.GetByID(ctx, reporterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrUserNotFound
		}
		return dto.ReportResponse{}, err
	}

	report := models.Report{
		ReporterID:    reporter.ID,
		ReporterName:  reporter.Name,
		ReporterEmail: reporter.Email,
		Reason:        req.Reason,
		Description:   req.Description,
		Status:        models.ReportPending,
	}

	if req.ReportedID == models.SupportReportedID {
		report.ReportedID = models.SupportReportedID
		report.ReportedName = models.SupportReportedName
		report.ReportedEmail = models.SupportReportedEmail
	} else {
		reported, err := s.users.GetByID(ctx, req.ReportedID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ReportResponse{}, ErrUserNotFound
			}
			return dto.ReportResponse{}, err
		}
		report.ReportedID = reported.ID
		report.ReportedName = reported.Name
		report.ReportedEmail = reported.Email
	}

	return s.persist(ctx, report)
}

// RequestSupport files a support request, which is modelled as a report
// against the reserved support pseudo-user.
func (s *reportService) RequestSupport(ctx context.Context, reporterID string, req dto.SupportRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReportResponse{}, err
	}

	reporter, err := s.users.GetByID(ctx, reporterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrUserNotFound
		}
		return dto.ReportResponse{}, err
	}

	report := models.Report{
		ReporterID:    reporter.ID,
		ReporterName:  reporter.Name,
		ReporterEmail: reporter.Email,
		ReportedID:    models.SupportReportedID,
		ReportedName:  models.SupportReportedName,
		ReportedEmail: models.SupportReportedEmail,
		Reason:        models.ReasonSupport,
		Description:   req.Message,
		Status:        models.ReportPending,
	}

	return s.persist(ctx, report)
}

func (s *reportService) persist(ctx context.Context, report models.Report) (dto.ReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.file", trace.WithAttributes(
		attribute.String("report.reporter_id", report.ReporterID),
		attribute.String("report.reported_id", report.ReportedID),
	))
	defer span.End()

	fresh, err := s.claimDedupe(ctx, report.ReporterID, report.ReportedID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("report dedupe check failed, accepting report")
	} else if !fresh {
		return dto.ReportResponse{}, ErrDuplicateReport
	}

	if err := s.reports.Create(ctx, &report); err != nil {
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	kind := "abuse"
	if report.IsSupport() {
		kind = "support"
	}
	observability.Reports().WithLabelValues(kind).Inc()

	s.logger.Info().
		Str("report_id", report.ID).
		Str("reporter_id", report.ReporterID).
		Str("reported_id", report.ReportedID).
		Str("kind", kind).
		Msg("report filed")

	return dto.NewReportResponse(report), nil
}

// claimDedupe returns false when the same reporter/reported pair was filed
// within the dedupe window.
func (s *reportService) claimDedupe(ctx context.Context, reporterID, reportedID string) (bool, error) {
	if s.redis == nil || s.dedupeBase == "" {
		return true, nil
	}
	key := fmt.Sprintf("%s:%s:%s", s.dedupeBase, reporterID, reportedID)
	return s.redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), reportDedupeTTL).Result()
}

func (s *reportService) List(ctx context.Context, status string, page, pageSize int) (dto.ReportListResponse, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	reports, total, err := s.reports.List(ctx, repository.ReportFilter{
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.ReportListResponse{}, err
	}

	return dto.ReportListResponse{
		Items:      dto.NewReportResponseSlice(reports),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

// UpdateStatus transitions a report to RESOLVED or DISMISSED and records the
// decision in the moderation audit trail.
func (s *reportService) UpdateStatus(ctx context.Context, actorID, reportID string, req dto.ReportStatusUpdateRequest) (dto.ReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReportResponse{}, err
	}

	report, err := s.reports.UpdateStatus(ctx, reportID, req.Status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotFound
		}
		return dto.ReportResponse{}, err
	}

	entry := models.ModerationLog{
		ActorID:  actorID,
		Action:   "report." + string(req.Status),
		TargetID: report.ID,
		Metadata: datatypes.JSONMap{
			"reporter_id": report.ReporterID,
			"reported_id": report.ReportedID,
		},
	}
	if err := s.audit.Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to write report audit entry")
	}

	s.logger.Info().
		Str("actor_id", actorID).
		Str("report_id", report.ID).
		Str("status", string(report.Status)).
		Msg("report status updated")

	return dto.NewReportResponse(report), nil
}
