package unit

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAdminListAuditLogs_InvalidPage(t *testing.T) {
	uc := usecase.NewAuditUsecase(new(AuditRepoMock))

	_, err := uc.AdminListAuditLogs(context.Background(), usecase.AdminListAuditLogsInput{Page: 0, Limit: 50})
	assertErrContains(t, err, "invalid page")
}

func TestAdminListAuditLogs_BuildsFilter(t *testing.T) {
	ctx := context.Background()

	actorID := int64(1)

	audit := new(AuditRepoMock)
	audit.On("List", mock.Anything, mock.MatchedBy(func(f repo.AuditLogFilter) bool {
		return f.ActorUserID != nil && *f.ActorUserID == actorID &&
			f.Action != nil && *f.Action == model.AuditActionUpdateStock &&
			f.Limit == 50 && f.Offset == 50
	})).Return([]model.AuditLog{{ID: 10, Action: model.AuditActionUpdateStock}}, nil)

	uc := usecase.NewAuditUsecase(audit)

	out, err := uc.AdminListAuditLogs(ctx, usecase.AdminListAuditLogsInput{
		ActorUserID: &actorID,
		Action:      string(model.AuditActionUpdateStock),
		Page:        2,
		Limit:       50,
	})
	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Page)

	audit.AssertExpectations(t)
}
