package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus tracks the moderation lifecycle of a report. The status field
// is the only mutable part of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportDismissed ReportStatus = "DISMISSED"
)

// Reserved identity of the support pseudo-user. Reports filed against it are
// direct support requests rather than abuse reports about a real account.
const (
	SupportReportedID    = "system-admin"
	SupportReportedName  = "الإدارة"
	SupportReportedEmail = "support@wecan.app"
)

// Well-known report reasons offered by the client. Free-text reasons are
// accepted as well.
const (
	ReasonAbuse          = "إساءة أو سلوك غير لائق"
	ReasonNonEducational = "محتوى غير تعليمي"
	ReasonSpam           = "إزعاج أو رسائل مكررة"
	ReasonImpersonation  = "انتحال شخصية"
	ReasonSupport        = "دعم فني"
	ReasonOther          = "سبب آخر"
)

// Report links a reporter to a reported party. Both identities are embedded
// as snapshots so the record stays readable after either account is deleted.
type Report struct {
	ID string `gorm:"primaryKey;size:64" json:"id"`

	ReporterID    string `gorm:"size:64;not null;index" json:"reporter_id"`
	ReporterName  string `gorm:"size:255;not null" json:"reporter_name"`
	ReporterEmail string `gorm:"size:255;not null" json:"reporter_email"`

	ReportedID    string `gorm:"size:64;not null;index" json:"reported_id"`
	ReportedName  string `gorm:"size:255;not null" json:"reported_name"`
	ReportedEmail string `gorm:"size:255" json:"reported_email"`

	Reason      string       `gorm:"size:255;not null" json:"reason"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Status      ReportStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the record has no identifier yet.
func (r *Report) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsSupport reports whether the report targets the support pseudo-user.
func (r *Report) IsSupport() bool {
	return r.ReportedID == SupportReportedID
}
