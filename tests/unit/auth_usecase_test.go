package unit

import (
	"context"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) List(ctx context.Context, q repo.UserListQuery) ([]model.User, int64, error) {
	args := m.Called(ctx, q)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

// validatorは常に通す／固定エラーを返すだけのスタブ
type validatorStub struct{ err error }

func (v validatorStub) ValidateRegister(ctx context.Context, email, password string) error {
	return v.err
}

func (v validatorStub) ValidateLogin(ctx context.Context, email, password string) error {
	return v.err
}

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", GoEnv: "dev"}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 平文を保存しない
		return u.Email == "new@example.com" &&
			u.PasswordHash != "password123" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(nil)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	res, err := uc.Register(ctx, usecase.AuthRegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
	})
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", res.User.Email)

	users.AssertExpectations(t)
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	_, err := uc.Register(ctx, usecase.AuthRegisterRequest{
		Email:    "dup@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, usecase.ErrConflict)
}

func TestLogin_Success_IssuesToken(t *testing.T) {
	ctx := context.Background()

	user := &model.User{
		ID:           7,
		Email:        "user@example.com",
		PasswordHash: mustHash(t, "password123"),
		Role:         model.RoleUser,
		IsActive:     true,
	}

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.ID == int64(7) && u.LastLoginAt != nil
	})).Return(nil)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	res, err := uc.Login(ctx, usecase.AuthLoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Token.AccessToken)
	assert.Equal(t, int((24 * time.Hour).Seconds()), res.Token.ExpiresIn)

	// 発行したトークンのclaimsを検証
	parsed, err := jwt.Parse(res.Token.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "USER", claims["role"])

	users.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()

	user := &model.User{
		ID:           7,
		Email:        "user@example.com",
		PasswordHash: mustHash(t, "password123"),
		IsActive:     true,
	}

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	_, err := uc.Login(ctx, usecase.AuthLoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, assert.AnError)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	_, err := uc.Login(ctx, usecase.AuthLoginRequest{
		Email:    "ghost@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestLogin_InactiveUserForbidden(t *testing.T) {
	ctx := context.Background()

	user := &model.User{
		ID:           8,
		Email:        "banned@example.com",
		PasswordHash: mustHash(t, "password123"),
		IsActive:     false,
	}

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "banned@example.com").Return(user, nil)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	_, err := uc.Login(ctx, usecase.AuthLoginRequest{
		Email:    "banned@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, usecase.ErrForbidden)
}

func TestMe_Success(t *testing.T) {
	ctx := context.Background()

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{
		ID:       7,
		Email:    "user@example.com",
		Role:     model.RoleUser,
		IsActive: true,
	}, nil)

	uc := usecase.NewAuthUsecase(testConfig(), users, validatorStub{})

	dto, err := uc.Me(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), dto.ID)
	assert.Equal(t, "user@example.com", dto.Email)
}

func TestMe_InvalidID(t *testing.T) {
	uc := usecase.NewAuthUsecase(testConfig(), new(UserRepoMock), validatorStub{})

	_, err := uc.Me(context.Background(), 0)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}
