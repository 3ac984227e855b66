package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/wecan-app/wecan-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta builds pagination metadata from a total row count.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// AdminUserListRequest defines filters for the moderation console user list.
type AdminUserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Stage    string
	Grade    string
	Status   string
}

// AdminUserListResponse wraps a paginated user listing.
type AdminUserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// SanctionRequest applies a sanction to a user account.
type SanctionRequest struct {
	Type   models.SanctionType `json:"type" validate:"required,oneof=WARNING MUTE BAN REACTIVATE"`
	Reason string              `json:"reason" validate:"required,min=2,max=1000"`
}

// ViolationResponse is the serialized representation of a violation record.
type ViolationResponse struct {
	Type      models.SanctionType `json:"type"`
	Reason    string              `json:"reason"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewViolationResponseSlice converts violation models into DTOs.
func NewViolationResponseSlice(violations []models.ViolationRecord) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(violations))
	for _, violation := range violations {
		out = append(out, ViolationResponse{
			Type:      violation.Type,
			Reason:    violation.Reason,
			CreatedAt: violation.CreatedAt,
		})
	}
	return out
}

// SanctionResponse reports the outcome of applying a sanction.
type SanctionResponse struct {
	User       UserResponse        `json:"user"`
	Violations []ViolationResponse `json:"violations"`
}

// ModerationLogEntryResponse is a serialized audit-trail entry.
type ModerationLogEntryResponse struct {
	ID        uint              `json:"id"`
	ActorID   string            `json:"actor_id"`
	Action    string            `json:"action"`
	TargetID  string            `json:"target_id,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewModerationLogEntryResponseSlice converts audit entries into DTOs.
func NewModerationLogEntryResponseSlice(entries []models.ModerationLog) []ModerationLogEntryResponse {
	out := make([]ModerationLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ModerationLogEntryResponse{
			ID:        entry.ID,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			TargetID:  entry.TargetID,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

// ModerationLogListRequest defines filters for the audit-trail listing.
type ModerationLogListRequest struct {
	ActorID  string
	Action   string
	TargetID string
	Page     int
	PageSize int
}

// ModerationLogListResponse wraps a paginated audit listing.
type ModerationLogListResponse struct {
	Items      []ModerationLogEntryResponse `json:"items"`
	Pagination PaginationMeta               `json:"pagination"`
}
