package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
)

func seedReport(t *testing.T, repo ReportRepository, reporterID, reportedID, reason string) models.Report {
	t.Helper()
	report := models.Report{
		ReporterID:    reporterID,
		ReporterName:  "Reporter",
		ReporterEmail: "reporter@example.com",
		ReportedID:    reportedID,
		ReportedName:  "Reported",
		Reason:        reason,
		Status:        models.ReportPending,
	}
	require.NoError(t, repo.Create(context.Background(), &report))
	return report
}

func TestReportRepositoryStatusLifecycle(t *testing.T) {
	db := setupTestDB(t, &models.Report{})
	repo := NewReportRepository(db)

	report := seedReport(t, repo, "u1", "u2", models.ReasonAbuse)
	require.NotEmpty(t, report.ID)
	require.Equal(t, models.ReportPending, report.Status)

	resolved, err := repo.UpdateStatus(context.Background(), report.ID, models.ReportResolved)
	require.NoError(t, err)
	require.Equal(t, models.ReportResolved, resolved.Status)

	stored, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportResolved, stored.Status)

	_, err = repo.UpdateStatus(context.Background(), "missing", models.ReportDismissed)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReportRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t, &models.Report{})
	repo := NewReportRepository(db)

	seedReport(t, repo, "u1", "u2", models.ReasonAbuse)
	support := seedReport(t, repo, "u1", models.SupportReportedID, models.ReasonSupport)
	resolved := seedReport(t, repo, "u3", "u2", models.ReasonSpam)
	_, err := repo.UpdateStatus(context.Background(), resolved.ID, models.ReportResolved)
	require.NoError(t, err)

	pending, total, err := repo.List(context.Background(), ReportFilter{Status: string(models.ReportPending)})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, pending, 2)

	againstSupport, total, err := repo.List(context.Background(), ReportFilter{ReportedID: models.SupportReportedID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, support.ID, againstSupport[0].ID)
	require.True(t, againstSupport[0].IsSupport())
}
