package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanctionTypeValid(t *testing.T) {
	require.True(t, SanctionWarning.Valid())
	require.True(t, SanctionMute.Valid())
	require.True(t, SanctionBan.Valid())
	require.True(t, SanctionReactivate.Valid())
	require.False(t, SanctionType("SUSPEND").Valid())
	require.False(t, SanctionType("").Valid())
}

func TestSanctionNextStatus(t *testing.T) {
	require.Equal(t, StatusMuted, SanctionMute.NextStatus(StatusActive))
	require.Equal(t, StatusBanned, SanctionBan.NextStatus(StatusMuted))
	require.Equal(t, StatusActive, SanctionReactivate.NextStatus(StatusBanned))

	// A warning leaves the current status alone.
	require.Equal(t, StatusMuted, SanctionWarning.NextStatus(StatusMuted))
	require.Equal(t, StatusActive, SanctionWarning.NextStatus(StatusActive))
}

func TestReactivateLogsWarningViolation(t *testing.T) {
	require.Equal(t, SanctionWarning, SanctionReactivate.ViolationType())
	require.Equal(t, SanctionBan, SanctionBan.ViolationType())
	require.Equal(t, SanctionMute, SanctionMute.ViolationType())
}
