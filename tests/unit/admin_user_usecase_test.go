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

func TestAdminUserList_InvalidLimit(t *testing.T) {
	uc := usecase.NewAdminUserUsecase(new(UserRepoMock), new(AuditRepoMock))

	_, err := uc.List(context.Background(), 1, 101)
	assertErrContains(t, err, "invalid limit")
}

func TestAdminUserList_Success(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("List", mock.Anything, repo.UserListQuery{Page: 1, Limit: 20}).Return([]model.User{
		{ID: 1, Email: "a@example.com", Role: model.RoleUser, IsActive: true},
		{ID: 2, Email: "b@example.com", Role: model.RoleAdmin, IsActive: true},
	}, int64(2), nil)

	uc := usecase.NewAdminUserUsecase(users, new(AuditRepoMock))

	out, err := uc.List(ctx, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, "ADMIN", out.Items[1].Role)
}

func TestAdminUserSetActive_DeactivatesAndAudits(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(3)).Return(&model.User{
		ID: 3, Email: "c@example.com", Role: model.RoleUser, IsActive: true,
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.ID == int64(3) && !u.IsActive
	})).Return(nil)

	audit := new(AuditRepoMock)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(log model.AuditLog) bool {
		return log.Action == model.AuditActionUpdateUserActive &&
			log.ResourceType == model.AuditResourceUser &&
			log.ResourceID == int64(3) &&
			log.BeforeJSON == `{"is_active":true}` &&
			log.AfterJSON == `{"is_active":false}`
	})).Return(nil)

	uc := usecase.NewAdminUserUsecase(users, audit)

	dto, err := uc.SetActive(ctx, 1, 3, false)
	assert.NoError(t, err)
	assert.False(t, dto.IsActive)

	users.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAdminUserSetActive_NoopWhenUnchanged(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(3)).Return(&model.User{
		ID: 3, IsActive: true,
	}, nil)

	audit := new(AuditRepoMock)

	uc := usecase.NewAdminUserUsecase(users, audit)

	dto, err := uc.SetActive(ctx, 1, 3, true)
	assert.NoError(t, err)
	assert.True(t, dto.IsActive)

	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminUserSetActive_NotFound(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(99)).Return(nil, repo.ErrUserNotFound)

	uc := usecase.NewAdminUserUsecase(users, new(AuditRepoMock))

	_, err := uc.SetActive(ctx, 1, 99, false)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}
