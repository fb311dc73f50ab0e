// internal/storage/storage.go
package storage

import (
	"context"

	"geekshop/internal/domain"
)

type ProductStorage interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// SeedInitialCatalog вставляет встроенный каталог, только если таблица пуста
	SeedInitialCatalog(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
}

type UserStorage interface {
	FindUserByLogin(ctx context.Context, login string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int) (*domain.User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	NextUserID(ctx context.Context) (int, error)
	VerifyCredentials(ctx context.Context, login, password string) (bool, error)
	InsertUser(ctx context.Context, user *domain.User) error
}

type CartStorage interface {
	CartLines(ctx context.Context, userID int) ([]domain.CartLine, error)
	UpsertCartLine(ctx context.Context, userID, productID int) error
	DeleteCartLine(ctx context.Context, userID, productID int) error
	ClearCart(ctx context.Context, userID int) error
}

type BonusStorage interface {
	GetBonus(ctx context.Context, userID int) (int, error)
	SetBonus(ctx context.Context, userID, bonus int) error
	// CommitSettlement записывает новый баланс и очищает корзину одной транзакцией
	CommitSettlement(ctx context.Context, userID, newBonus int) error
}

type Store interface {
	ProductStorage
	UserStorage
	CartStorage
	BonusStorage
	Close() error
}
