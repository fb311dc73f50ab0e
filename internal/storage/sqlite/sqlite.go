// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"geekshop/internal/auth"
	"geekshop/internal/catalog"
	"geekshop/internal/domain"
	"geekshop/migrations"

	"github.com/mattn/go-sqlite3"
)

// Storage держит одно соединение, доступ сериализован mu.
type Storage struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database file and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// для :memory: каждое новое соединение открывает пустую базу
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrations.Up(ctx, db, migrations.SQLite); err != nil {
		db.Close()
		return nil, err
	}
	return NewStorage(db), nil
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

// === ProductStorage ===

const productColumns = "id, name, cost, image, description, category"

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner, p *domain.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Cost, &p.Image, &p.Description, &p.Category)
}

func (s *Storage) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listProducts(ctx, s.db)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listProducts(ctx context.Context, q queryer) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, persistErr("list products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
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
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback()

	existing, err := listProducts(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	products := catalog.Products()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, cost, image, description, category)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, persistErr("prepare seed", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Cost, p.Image, p.Description, p.Category); err != nil {
			return nil, persistErr(fmt.Sprintf("seed product %d", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit tx", err)
	}
	slog.Info("Catalog seeded", "products", len(products))
	return products, nil
}

func (s *Storage) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p domain.Product
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, persistErr("get product", err)
	}
	return &p, nil
}

// === UserStorage ===

func (s *Storage) findUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, login, password_hash, bonus FROM users WHERE "+where+" LIMIT 1", arg,
	).Scan(&u.ID, &u.Name, &u.Login, &u.PasswordHash, &u.Bonus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, persistErr("find user", err)
	}
	return &u, nil
}

func (s *Storage) FindUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(ctx, "login = ?", login)
}

func (s *Storage) FindUserByID(ctx context.Context, id int) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(ctx, "id = ?", id)
}

func (s *Storage) LoginExists(ctx context.Context, login string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE login = ?)", login).Scan(&exists)
	if err != nil {
		return false, persistErr("check login", err)
	}
	return exists, nil
}

func (s *Storage) NextUserID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM users").Scan(&next); err != nil {
		return 0, persistErr("next user id", err)
	}
	return next, nil
}

func (s *Storage) VerifyCredentials(ctx context.Context, login, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE login = ? LIMIT 1", login).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE login = ?)", user.Login).Scan(&exists); err != nil {
		return persistErr("check login", err)
	}
	if exists {
		return fmt.Errorf("login %q: %w", user.Login, domain.ErrDuplicateLogin)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, name, login, password_hash, bonus)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Login, user.PasswordHash, user.Bonus)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("login %q: %w", user.Login, domain.ErrDuplicateLogin)
		}
		return persistErr("insert user", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit tx", err)
	}
	slog.Debug("InsertUser completed", "user_id", user.ID)
	return nil
}

// === CartStorage ===

func (s *Storage) CartLines(ctx context.Context, userID int) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.cost, p.image, p.description, p.category, c.quantity
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
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
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", productID).Scan(&exists); err != nil {
		return persistErr("check product", err)
	}
	if !exists {
		slog.Error("Product not found", "product_id", productID, "user_id", userID)
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cart (user_id, product_id, quantity) VALUES (?, ?, 1)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + 1
	`, userID, productID)
	if err != nil {
		return persistErr("upsert cart line", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit tx", err)
	}
	slog.Debug("UpsertCartLine completed", "user_id", userID, "product_id", productID)
	return nil
}

func (s *Storage) DeleteCartLine(ctx context.Context, userID, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cart WHERE user_id = ? AND product_id = ?", userID, productID); err != nil {
		return persistErr("delete cart line", err)
	}
	return nil
}

func (s *Storage) ClearCart(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cart WHERE user_id = ?", userID); err != nil {
		return persistErr("clear cart", err)
	}
	return nil
}

// === BonusStorage ===

// GetBonus returns 0 for an unknown user.
func (s *Storage) GetBonus(ctx context.Context, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bonus int
	err := s.db.QueryRowContext(ctx, "SELECT bonus FROM users WHERE id = ?", userID).Scan(&bonus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE users SET bonus = ? WHERE id = ?", bonus, userID)
	if err != nil {
		return persistErr("set bonus", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) CommitSettlement(ctx context.Context, userID, newBonus int) error {
	if newBonus < 0 {
		return fmt.Errorf("bonus %d: %w", newBonus, domain.ErrInvalidAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE users SET bonus = ? WHERE id = ?", newBonus, userID)
	if err != nil {
		return persistErr("set bonus", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("set bonus", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart WHERE user_id = ?", userID); err != nil {
		return persistErr("clear cart", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit tx", err)
	}
	slog.Debug("CommitSettlement completed", "user_id", userID, "bonus", newBonus)
	return nil
}
