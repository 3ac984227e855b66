package models

// SanctionType is the closed set of administrative actions the moderation
// controller can apply to an account.
type SanctionType string

const (
	SanctionWarning    SanctionType = "WARNING"
	SanctionMute       SanctionType = "MUTE"
	SanctionBan        SanctionType = "BAN"
	SanctionReactivate SanctionType = "REACTIVATE"
)

// Valid reports whether the value is one of the known sanction types.
func (t SanctionType) Valid() bool {
	switch t {
	case SanctionWarning, SanctionMute, SanctionBan, SanctionReactivate:
		return true
	default:
		return false
	}
}

// NextStatus returns the account status resulting from applying the sanction
// to an account currently in the given status. A warning leaves the status
// unchanged.
func (t SanctionType) NextStatus(current UserStatus) UserStatus {
	switch t {
	case SanctionMute:
		return StatusMuted
	case SanctionBan:
		return StatusBanned
	case SanctionReactivate:
		return StatusActive
	default:
		return current
	}
}

// ViolationType returns the type recorded on the violation entry. A
// reactivation is logged as a warning-class entry.
func (t SanctionType) ViolationType() SanctionType {
	if t == SanctionReactivate {
		return SanctionWarning
	}
	return t
}
