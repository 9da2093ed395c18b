package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betslip-service/internal/betslip"
)

// Factory monta o engine de um usuário; notifier é o snackbar da sessão
type Factory func(userID string, notifier betslip.Notifier) *betslip.Engine

// Session é o slip de um usuário e sua notificação visível
type Session struct {
	UserID   string
	Engine   *betslip.Engine
	Snackbar *Snackbar

	lastSeen atomic.Int64 // unix nano
}

// Touch marca uso da sessão (idle sweep)
func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// Manager mantém uma sessão por usuário. Fechar a sessão encerra o engine
// e todas as assinaturas de eventos do slip.
type Manager struct {
	build Factory
	log   *zap.Logger

	OnOpen  func() // métricas (gauge++)
	OnClose func() // métricas (gauge--)

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(build Factory, log *zap.Logger) *Manager {
	return &Manager{
		build:    build,
		log:      log.With(zap.String("component", "sessions")),
		sessions: make(map[string]*Session),
	}
}

// Get retorna a sessão existente
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// GetOrCreate retorna a sessão do usuário, criando se necessário
func (m *Manager) GetOrCreate(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.Touch()
		return s
	}
	snack := NewSnackbar(m.log.With(zap.String("user_id", userID)))
	s := &Session{
		UserID:   userID,
		Engine:   m.build(userID, snack),
		Snackbar: snack,
	}
	s.Touch()
	m.sessions[userID] = s
	m.log.Info("session opened", zap.String("user_id", userID))
	if m.OnOpen != nil {
		m.OnOpen()
	}
	return s
}

// Close encerra a sessão; retorna false se não existia
func (m *Manager) Close(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.teardown(s)
	return true
}

// CloseAll encerra todas as sessões (shutdown)
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		m.teardown(s)
	}
}

// Users retorna os usuários com sessão aberta, ordenados
func (m *Manager) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sweep fecha sessões com slip vazio sem uso há mais de idle.
// Slips com apostas nunca são descartados.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	var victims []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Engine.Store.Len() == 0 && s.lastSeen.Load() < cutoff.UnixNano() {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range victims {
		m.teardown(s)
	}
	return len(victims)
}

// RunSweeper executa Sweep periodicamente até ctx terminar
func (m *Manager) RunSweeper(ctx context.Context, every, idle time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if n := m.Sweep(idle); n > 0 {
				m.log.Debug("idle sessions closed", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) teardown(s *Session) {
	s.Engine.Close()
	m.log.Info("session closed", zap.String("user_id", s.UserID))
	if m.OnClose != nil {
		m.OnClose()
	}
}
