package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
)

// ReportFilter narrows report listing queries.
type ReportFilter struct {
	Status     string
	ReportedID string
	Page       int
	PageSize   int
}

// ReportRepository persists abuse and support reports. Entries are append
// only except for the status field.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs a report repository backed by GORM.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return models.Report{}, err
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Report{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ReportedID != "" {
		query = query.Where("reported_id = ?", filter.ReportedID)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var reports []models.Report
	if err := query.Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&report).Update("status", status).Error; err != nil {
			return err
		}
		report.Status = status
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}
	return report, nil
}
