// internal/session/session.go
package session

import (
	"strconv"
	"sync"
)

// Поля сессии покупателя
const (
	CurrentUserID  = "current_user_id"
	UserName       = "user_name"
	UserLogin      = "user_login"
	UserBonus      = "user_bonus"
	PurchaseAmount = "purchase_amount"
	UsedBonus      = "used_bonus"
)

// Store хранит плоские значения по ключу сессии.
// Отсутствие CurrentUserID означает, что вход не выполнен.
type Store interface {
	GetInt(key, field string) (int, bool)
	SetInt(key, field string, v int)
	GetString(key, field string) (string, bool)
	SetString(key, field, v string)
	Delete(key string, fields ...string)
	Clear(key string)
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) GetString(key, field string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key][field]
	return v, ok
}

func (m *Memory) SetString(key, field, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.data[key]
	if !ok {
		fields = make(map[string]string)
		m.data[key] = fields
	}
	fields[field] = v
}

func (m *Memory) GetInt(key, field string) (int, bool) {
	s, ok := m.GetString(key, field)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (m *Memory) SetInt(key, field string, v int) {
	m.SetString(key, field, strconv.Itoa(v))
}

func (m *Memory) Delete(key string, fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.data[key], f)
	}
}

func (m *Memory) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// UserID возвращает текущего пользователя сессии
func UserID(s Store, key string) (int, bool) {
	id, ok := s.GetInt(key, CurrentUserID)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
