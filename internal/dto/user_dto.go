package dto

// ProfileUpdateRequest updates the caller's own profile fields. Nil pointers
// leave the corresponding field untouched.
type ProfileUpdateRequest struct {
	Name                      *string `json:"name" validate:"omitempty,min=2,max=255"`
	Stage                     *string `json:"stage" validate:"omitempty,max=128"`
	Grade                     *string `json:"grade" validate:"omitempty,max=128"`
	SchoolName                *string `json:"school_name" validate:"omitempty,max=255"`
	Classroom                 *string `json:"classroom" validate:"omitempty,max=64"`
	ChatNotifications         *bool   `json:"chat_notifications"`
	AnnouncementNotifications *bool   `json:"announcement_notifications"`
}

// CurrentRoomRequest sets or clears the caller's presence marker.
type CurrentRoomRequest struct {
	RoomID *string `json:"room_id" validate:"omitempty,max=300"`
}

// BlockListResponse returns the ids blocked by the caller.
type BlockListResponse struct {
	BlockedIDs []string `json:"blocked_ids"`
}
