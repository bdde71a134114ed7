package service

import (
	"context"
	"testing"

	"yatube/internal/errors"
	"yatube/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a testify mock of interfaces.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	mockRepo.On("FindByUsername", ctx, "testuser").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(nil)

	user := &model.User{Username: " testuser ", Email: "test@example.com"}
	err := service.Register(ctx, user, "password123")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	assert.Equal(t, "testuser", user.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	mockRepo.On("FindByUsername", ctx, "existinguser").Return(&model.User{ID: 3}, nil)

	err := service.Register(ctx, &model.User{Username: "existinguser"}, "password123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUserExists))
	fe, ok := errors.FieldOf(err)
	require.True(t, ok)
	assert.Equal(t, "username", fe.Field)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	err := service.Register(context.Background(), &model.User{Username: "u"}, "short")
	assert.True(t, errors.Is(err, errors.ErrWeakPassword))
	mockRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestRegisterRejectsUnsafeUsername(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	for _, username := range []string{"a/b", `q"x`, "two words", "x?y"} {
		err := service.Register(context.Background(), &model.User{Username: username}, "password123")
		assert.True(t, errors.Is(err, errors.ErrValidation), username)
	}
	mockRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: 1, Username: "auth", PasswordHash: string(hash)}

	mockRepo.On("FindByUsername", ctx, "auth").Return(stored, nil)
	mockRepo.On("FindByUsername", ctx, "ghost").Return(nil, nil)

	user, err := service.Authenticate(ctx, "auth", "password123")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)

	_, err = service.Authenticate(ctx, "auth", "wrong")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	_, err = service.Authenticate(ctx, "ghost", "password123")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := NewUserService(mockRepo)

	mockRepo.On("FindByID", ctx, 1).Return(&model.User{ID: 1, Username: "auth"}, nil)
	mockRepo.On("FindByID", ctx, 999).Return(nil, nil)

	user, err := service.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "auth", user.Username)

	_, err = service.GetUserByID(ctx, 999)
	assert.True(t, errors.Is(err, errors.ErrUserNotFound))
}
