package dto

import (
	"time"

	"github.com/wecan-app/wecan-api/internal/models"
)

// ReportCreateRequest files an abuse report against another user.
type ReportCreateRequest struct {
	ReportedID  string `json:"reported_id" validate:"required,max=64"`
	Reason      string `json:"reason" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"omitempty,max=4000"`
}

// SupportRequest files a direct support request to the administration.
type SupportRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// ReportStatusUpdateRequest transitions a report's status.
type ReportStatusUpdateRequest struct {
	Status models.ReportStatus `json:"status" validate:"required,oneof=RESOLVED DISMISSED"`
}

// ReportResponse is the serialized representation of a report.
type ReportResponse struct {
	ID            string              `json:"id"`
	ReporterID    string              `json:"reporter_id"`
	ReporterName  string              `json:"reporter_name"`
	ReporterEmail string              `json:"reporter_email"`
	ReportedID    string              `json:"reported_id"`
	ReportedName  string              `json:"reported_name"`
	ReportedEmail string              `json:"reported_email,omitempty"`
	Reason        string              `json:"reason"`
	Description   string              `json:"description,omitempty"`
	Status        models.ReportStatus `json:"status"`
	IsSupport     bool                `json:"is_support"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewReportResponse converts a report model into a DTO.
func NewReportResponse(report models.Report) ReportResponse {
	return ReportResponse{
		ID:            report.ID,
		ReporterID:    report.ReporterID,
		ReporterName:  report.ReporterName,
		ReporterEmail: report.ReporterEmail,
		ReportedID:    report.ReportedID,
		ReportedName:  report.ReportedName,
		ReportedEmail: report.ReportedEmail,
		Reason:        report.Reason,
		Description:   report.Description,
		Status:        report.Status,
		IsSupport:     report.IsSupport(),
		CreatedAt:     report.CreatedAt,
	}
}

// NewReportResponseSlice converts a slice of report models into DTOs.
func NewReportResponseSlice(reports []models.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, NewReportResponse(report))
	}
	return out
}

// ReportListResponse wraps a paginated report listing.
type ReportListResponse struct {
	Items      []ReportResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}
