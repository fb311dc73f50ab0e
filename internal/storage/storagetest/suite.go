// internal/storage/storagetest/suite.go
package storagetest

import (
	"context"
	"testing"

	"geekshop/internal/auth"
	"geekshop/internal/catalog"
	"geekshop/internal/domain"
	"geekshop/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// Suite проверяет контракт storage.Store; NewStore должен отдавать пустую базу.
type Suite struct {
	suite.Suite
	NewStore func(t *testing.T) storage.Store

	ctx   context.Context
	store storage.Store
}

func (s *Suite) SetupSuite() {
	auth.PasswordCost = bcrypt.MinCost
	s.ctx = context.Background()
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore(s.T())
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *Suite) insertUser(id int, login, password string) *domain.User {
	hash, err := auth.HashPassword(password)
	require.NoError(s.T(), err)
	user := &domain.User{ID: id, Name: "User " + login, Login: login, PasswordHash: hash}
	require.NoError(s.T(), s.store.InsertUser(s.ctx, user))
	return user
}

func (s *Suite) seed() {
	_, err := s.store.SeedInitialCatalog(s.ctx)
	require.NoError(s.T(), err)
}

// === products ===

func (s *Suite) TestListProductsEmpty() {
	products, err := s.store.ListProducts(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), products)
}

func (s *Suite) TestSeedInitialCatalogOnlyOnce() {
	seeded, err := s.store.SeedInitialCatalog(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), seeded, len(catalog.Products()))

	again, err := s.store.SeedInitialCatalog(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), seeded, again)

	listed, err := s.store.ListProducts(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), seeded, listed)
}

func (s *Suite) TestGetProduct() {
	s.seed()

	p, err := s.store.GetProduct(s.ctx, 3)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "Elden Ring", p.Name)

	_, err = s.store.GetProduct(s.ctx, 18)
	require.ErrorIs(s.T(), err, domain.ErrNotFound)
}

// === users ===

func (s *Suite) TestNextUserIDEmpty() {
	next, err := s.store.NextUserID(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, next)
}

func (s *Suite) TestNextUserIDWithGaps() {
	s.insertUser(1, "alice", "pw")
	s.insertUser(3, "bob", "pw")

	next, err := s.store.NextUserID(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 4, next)
}

func (s *Suite) TestInsertUserDuplicateLogin() {
	s.insertUser(1, "alice", "pw")

	err := s.store.InsertUser(s.ctx, &domain.User{ID: 2, Name: "Other", Login: "alice", PasswordHash: "x"})
	require.ErrorIs(s.T(), err, domain.ErrDuplicateLogin)

	next, err := s.store.NextUserID(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, next)

	u, err := s.store.FindUserByLogin(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, u.ID)
	require.Equal(s.T(), "User alice", u.Name)
}

func (s *Suite) TestInsertUserNegativeBonus() {
	err := s.store.InsertUser(s.ctx, &domain.User{ID: 1, Name: "n", Login: "l", PasswordHash: "x", Bonus: -1})
	require.ErrorIs(s.T(), err, domain.ErrInvalidAmount)
}

func (s *Suite) TestLoginExistsIsCaseSensitive() {
	s.insertUser(1, "Alice", "pw")

	exists, err := s.store.LoginExists(s.ctx, "Alice")
	require.NoError(s.T(), err)
	require.True(s.T(), exists)

	exists, err = s.store.LoginExists(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.False(s.T(), exists)
}

func (s *Suite) TestFindUser() {
	s.insertUser(7, "carol", "pw")

	u, err := s.store.FindUserByID(s.ctx, 7)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "carol", u.Login)
	require.Zero(s.T(), u.Bonus)

	_, err = s.store.FindUserByID(s.ctx, 8)
	require.ErrorIs(s.T(), err, domain.ErrNotFound)

	_, err = s.store.FindUserByLogin(s.ctx, "nobody")
	require.ErrorIs(s.T(), err, domain.ErrNotFound)
}

func (s *Suite) TestVerifyCredentials() {
	s.insertUser(1, "dave", "secret")

	ok, err := s.store.VerifyCredentials(s.ctx, "dave", "secret")
	require.NoError(s.T(), err)
	require.True(s.T(), ok)

	ok, err = s.store.VerifyCredentials(s.ctx, "dave", "wrong")
	require.NoError(s.T(), err)
	require.False(s.T(), ok)

	ok, err = s.store.VerifyCredentials(s.ctx, "nobody", "secret")
	require.NoError(s.T(), err)
	require.False(s.T(), ok)
}

// === cart ===

func (s *Suite) TestUpsertCartLineIncrements() {
	s.seed()
	s.insertUser(1, "erin", "pw")

	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, 9))
	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, 9))

	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), lines, 1)
	require.Equal(s.T(), 9, lines[0].Product.ID)
	require.Equal(s.T(), "Beat Saber", lines[0].Product.Name)
	require.Equal(s.T(), 2, lines[0].Quantity)
}

func (s *Suite) TestUpsertCartLineUnknownProduct() {
	s.seed()
	s.insertUser(1, "erin", "pw")

	err := s.store.UpsertCartLine(s.ctx, 1, 999)
	require.ErrorIs(s.T(), err, domain.ErrNotFound)

	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), lines)
}

func (s *Suite) TestCartIsPerUser() {
	s.seed()
	s.insertUser(1, "a", "pw")
	s.insertUser(2, "b", "pw")

	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, 1))
	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 2, 2))
	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 2, 3))

	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), lines, 1)

	lines, err = s.store.CartLines(s.ctx, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), lines, 2)
	require.Equal(s.T(), 2, lines[0].Product.ID)
	require.Equal(s.T(), 3, lines[1].Product.ID)
}

func (s *Suite) TestDeleteCartLineAndClear() {
	s.seed()
	s.insertUser(1, "a", "pw")
	for _, id := range []int{1, 2, 3} {
		require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, id))
	}

	require.NoError(s.T(), s.store.DeleteCartLine(s.ctx, 1, 2))
	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), lines, 2)

	// удаление отсутствующей строки не ошибка
	require.NoError(s.T(), s.store.DeleteCartLine(s.ctx, 1, 2))

	require.NoError(s.T(), s.store.ClearCart(s.ctx, 1))
	lines, err = s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), lines)
}

// === bonus ===

func (s *Suite) TestBonusGetSet() {
	s.insertUser(1, "a", "pw")

	bonus, err := s.store.GetBonus(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Zero(s.T(), bonus)

	require.NoError(s.T(), s.store.SetBonus(s.ctx, 1, 300))
	bonus, err = s.store.GetBonus(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 300, bonus)

	require.ErrorIs(s.T(), s.store.SetBonus(s.ctx, 1, -5), domain.ErrInvalidAmount)
	require.ErrorIs(s.T(), s.store.SetBonus(s.ctx, 42, 5), domain.ErrNotFound)

	bonus, err = s.store.GetBonus(s.ctx, 42)
	require.NoError(s.T(), err)
	require.Zero(s.T(), bonus)
}

func (s *Suite) TestCommitSettlement() {
	s.seed()
	s.insertUser(1, "a", "pw")
	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, 1))

	require.NoError(s.T(), s.store.CommitSettlement(s.ctx, 1, 35))

	bonus, err := s.store.GetBonus(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 35, bonus)

	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), lines)
}

func (s *Suite) TestCommitSettlementFailureKeepsState() {
	s.seed()
	s.insertUser(1, "a", "pw")
	require.NoError(s.T(), s.store.SetBonus(s.ctx, 1, 100))
	require.NoError(s.T(), s.store.UpsertCartLine(s.ctx, 1, 1))

	require.ErrorIs(s.T(), s.store.CommitSettlement(s.ctx, 1, -1), domain.ErrInvalidAmount)
	require.ErrorIs(s.T(), s.store.CommitSettlement(s.ctx, 2, 10), domain.ErrNotFound)

	bonus, err := s.store.GetBonus(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 100, bonus)

	lines, err := s.store.CartLines(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), lines, 1)
}
