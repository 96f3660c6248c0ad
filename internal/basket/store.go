package basket

import (
	"sync"

	"github.com/google/uuid"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
)

// Store держит корзины по сессиям. Только память: рестарт сервиса — пустые
// корзины, это осознанно (см. жизненный цикл Line).
type Store struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Basket
}

func NewStore() *Store {
	return &Store{items: map[uuid.UUID]*Basket{}}
}

// Open возвращает корзину сессии, создавая при первом обращении. Режим и
// заявка фиксируются при создании; попытка открыть ту же сессию в другом
// режиме — ошибка валидации.
func (s *Store) Open(session uuid.UUID, mode Mode, requestID int64) (*Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.items[session]
	if !ok {
		b = New(mode, requestID)
		s.items[session] = b
		return b, nil
	}
	if b.mode != mode || b.requestID != requestID {
		return nil, issuance.Validationf("в сессии уже открыта корзина другого режима")
	}
	return b, nil
}

// Get возвращает корзину без создания.
func (s *Store) Get(session uuid.UUID) (*Basket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[session]
	return b, ok
}

// Drop удаляет корзину сессии (после успешного сабмита или явной очистки).
func (s *Store) Drop(session uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, session)
}
