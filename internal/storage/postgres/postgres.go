// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"geekshop/internal/auth"
	"geekshop/internal/catalog"
	"geekshop/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

// === ProductStorage ===

const productColumns = "id, name, cost, image, description, category"

func (s *Storage) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return listProducts(ctx, s.db)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listProducts(ctx context.Context, q querier) ([]domain.Product, error) {
	rows, err := q.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, persistErr("list products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Cost, &p.Image, &p.Description, &p.Category); err != nil {
			return nil, persistErr("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return products, nil
}

func (s *Storage) SeedInitialCatalog(ctx context.Context) ([]domain.Product, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	// блокируем таблицу, чтобы два процесса не засеяли её одновременно
	if _, err := tx.Exec(ctx, "LOCK TABLE products IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return nil, persistErr("lock products", err)
	}

	existing, err := listProducts(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	products := catalog.Products()
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (id, name, cost, image, description, category)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, p.Name, p.Cost, p.Image, p.Description, p.Category)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, persistErr("seed products", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	slog.Info("Catalog seeded", "products", len(products))
	return products, nil
}

func (s *Storage) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.Name, &p.Cost, &p.Image, &p.Description, &p.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, persistErr("get product", err)
	}
	return &p, nil
}

// === UserStorage ===

func (s *Storage) findUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx,
		"SELECT id, name, login, password_hash, bonus FROM users WHERE "+where+" LIMIT 1", arg,
	).Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, persistErr("find user", err)
	}
	return &u, nil
}

func (s *Storage) FindUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	return s.findUser(ctx, "login = $1", login)
}

func (s *Storage) FindUserByID(ctx context.Context, id int) (*domain.User, error) {
	return s.findUser(ctx, "id = $1", id)
}

func (s *Storage) LoginExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)", login).Scan(&exists); err != nil {
		return false, persistErr("check login", err)
	}
	return exists, nil
}

func (s *Storage) NextUserID(ctx context.Context) (int, error) {
	var next int
	if err := s.db.QueryRow(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM users").Scan(&next); err != nil {
		return 0, persistErr("next user id", err)
	}
	return next, nil
}

func (s *Storage) VerifyCredentials(ctx context.Context, login, password string) (bool, error) {
	var hash string
	err := s.db.QueryRow(ctx, "SELECT password_hash FROM users WHERE login = $1 LIMIT 1", login).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, persistErr("verify credentials", err)
	}
	return auth.CheckPassword(hash, password)
}

func (s *Storage) InsertUser(ctx context.Context, user *domain.User) error {
	if user.Bonus < 0 {
		return fmt.Errorf("bonus %d: %w", user.Bonus, domain.ErrInvalidAmount)
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, name, login, password_hash, bonus)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Name, user.Login, user.PasswordHash, user.Bonus)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_login_key" {
			return fmt.Errorf("login %q: %w", user.Login, domain.ErrDuplicateLogin)
		}
		return persistErr("insert user", err)
	}
	slog.Debug("InsertUser completed", "user_id", user.ID)
	return nil
}

// === CartStorage ===

func (s *Storage) CartLines(ctx context.Context, userID int) ([]domain.CartLine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, p.cost, p.image, p.description, p.category, c.quantity
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, persistErr("query cart", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		p := &line.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Cost, &p.Image, &p.Description, &p.Category, &line.Quantity); err != nil {
			return nil, persistErr("scan cart line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return lines, nil
}

func (s *Storage) UpsertCartLine(ctx context.Context, userID, productID int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists); err != nil {
		return persistErr("check product", err)
	}
	if !exists {
		slog.Error("Product not found", "product_id", productID, "user_id", userID)
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart (user_id, product_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + 1
	`, userID, productID)
	if err != nil {
		return persistErr("upsert cart line", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistErr("commit tx", err)
	}
	slog.Debug("UpsertCartLine completed", "user_id", userID, "product_id", productID)
	return nil
}

func (s *Storage) DeleteCartLine(ctx context.Context, userID, productID int) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM cart WHERE user_id = $1 AND product_id = $2", userID, productID); err != nil {
		return persistErr("delete cart line", err)
	}
	return nil
}

func (s *Storage) ClearCart(ctx context.Context, userID int) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM cart WHERE user_id = $1", userID); err != nil {
		return persistErr("clear cart", err)
	}
	return nil
}

// === BonusStorage ===

func (s *Storage) GetBonus(ctx context.Context, userID int) (int, error) {
	var bonus int
	err := s.db.QueryRow(ctx, "SELECT bonus FROM users WHERE id = $1", userID).Scan(&bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, persistErr("get bonus", err)
	}
	return bonus, nil
}

func (s *Storage) SetBonus(ctx context.Context, userID, bonus int) error {
	if bonus < 0 {
		return fmt.Errorf("bonus %d: %w", bonus, domain.ErrInvalidAmount)
	}
	result, err := s.db.Exec(ctx, "UPDATE users SET bonus = $1 WHERE id = $2", bonus, userID)
	if err != nil {
		return persistErr("set bonus", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) CommitSettlement(ctx context.Context, userID, newBonus int) error {
	if newBonus < 0 {
		return fmt.Errorf("bonus %d: %w", newBonus, domain.ErrInvalidAmount)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, "UPDATE users SET bonus = $1 WHERE id = $2", newBonus, userID)
	if err != nil {
		return persistErr("set bonus", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM cart WHERE user_id = $1", userID); err != nil {
		return persistErr("clear cart", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistErr("commit tx", err)
	}
	slog.Debug("CommitSettlement completed", "user_id", userID, "bonus", newBonus)
	return nil
}
