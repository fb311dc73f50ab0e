// internal/domain/models.go
package domain

// Product — позиция каталога. Cost хранится как строка для показа ("1999 ₽").
type Product struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Cost        string `json:"cost" yaml:"cost"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	Bonus        int    `json:"bonus"`
}

// Quantity в CartLine всегда >= 1
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type Category struct {
	Name string `json:"name"`
}

// AllCategories означает отсутствие фильтра
const AllCategories = "All"
