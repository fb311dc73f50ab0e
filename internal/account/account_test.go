package account

import (
	"context"
	"strings"
	"testing"

	"geekshop/internal/auth"
	"geekshop/internal/domain"
	"geekshop/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type AccountSuite struct {
	suite.Suite
	ctx   context.Context
	store *sqlite.Storage
	svc   *Service
}

func (s *AccountSuite) SetupSuite() {
	auth.PasswordCost = bcrypt.MinCost
	s.ctx = context.Background()
}

func (s *AccountSuite) SetupTest() {
	store, err := sqlite.Open(s.ctx, ":memory:")
	require.NoError(s.T(), err)
	s.store = store
	s.svc = NewService(store)
}

func (s *AccountSuite) TearDownTest() {
	s.store.Close()
}

func (s *AccountSuite) TestRegisterAssignsSequentialIDs() {
	id, err := s.svc.Register(s.ctx, "Анна", "anna", "pw1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, id)

	id, err = s.svc.Register(s.ctx, "Борис", "boris", "pw2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, id)

	user, err := s.store.FindUserByID(s.ctx, 2)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), user.Bonus)
	assert.NotEqual(s.T(), "pw2", user.PasswordHash)
}

func (s *AccountSuite) TestRegisterDuplicateLogin() {
	_, err := s.svc.Register(s.ctx, "Анна", "anna", "pw1")
	require.NoError(s.T(), err)

	_, err = s.svc.Register(s.ctx, "Другая Анна", "anna", "pw2")
	require.ErrorIs(s.T(), err, domain.ErrDuplicateLogin)

	next, err := s.store.NextUserID(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, next)

	// логины чувствительны к регистру
	_, err = s.svc.Register(s.ctx, "Анна", "Anna", "pw3")
	require.NoError(s.T(), err)
}

func (s *AccountSuite) TestRegisterRejectsBlankFields() {
	_, err := s.svc.Register(s.ctx, "  ", "anna", "pw")
	require.ErrorIs(s.T(), err, domain.ErrInvalidInput)

	_, err = s.svc.Register(s.ctx, "Анна", "an na", "pw")
	require.ErrorIs(s.T(), err, domain.ErrInvalidInput)

	_, err = s.svc.Register(s.ctx, "Анна", "anna", "")
	require.ErrorIs(s.T(), err, domain.ErrInvalidInput)

	next, err := s.store.NextUserID(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, next)
}

func (s *AccountSuite) TestRegisterPasswordLimitInBytes() {
	// 41 кириллический символ = 82 байта, bcrypt берёт не больше 72
	long := strings.Repeat("ж", 41)
	_, err := s.svc.Register(s.ctx, "Анна", "anna", long)
	require.ErrorIs(s.T(), err, domain.ErrInvalidInput)

	fits := strings.Repeat("ж", 36)
	id, err := s.svc.Register(s.ctx, "Анна", "anna", fits)
	require.NoError(s.T(), err)

	user, err := s.svc.Authenticate(s.ctx, "anna", fits)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, user.ID)
}

func (s *AccountSuite) TestAuthenticate() {
	id, err := s.svc.Register(s.ctx, "Анна", "anna", "secret")
	require.NoError(s.T(), err)

	user, err := s.svc.Authenticate(s.ctx, "anna", "secret")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, user.ID)
	assert.Equal(s.T(), "Анна", user.Name)
	assert.Empty(s.T(), user.PasswordHash)

	_, err = s.svc.Authenticate(s.ctx, "anna", "wrong")
	require.ErrorIs(s.T(), err, domain.ErrNotFound)

	_, err = s.svc.Authenticate(s.ctx, "nobody", "secret")
	require.ErrorIs(s.T(), err, domain.ErrNotFound)
}

func (s *AccountSuite) TestProfileShowsCurrentBonus() {
	id, err := s.svc.Register(s.ctx, "Анна", "anna", "secret")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.SetBonus(s.ctx, id, 120))

	user, err := s.svc.Profile(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 120, user.Bonus)
	assert.Empty(s.T(), user.PasswordHash)

	_, err = s.svc.Profile(s.ctx, 99)
	require.ErrorIs(s.T(), err, domain.ErrNotFound)
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}
