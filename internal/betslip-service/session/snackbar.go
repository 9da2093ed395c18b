package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/betslip-service/internal/betslip"
)

// Snackbar guarda a última notificação do usuário até ser lida ou substituída
type Snackbar struct {
	log *zap.Logger

	mu   sync.Mutex
	last *betslip.Notification
}

func NewSnackbar(log *zap.Logger) *Snackbar { return &Snackbar{log: log} }

func (s *Snackbar) Notify(_ context.Context, n betslip.Notification) {
	s.mu.Lock()
	s.last = &n
	s.mu.Unlock()
	s.log.Info("notification", zap.String("severity", string(n.Severity)), zap.String("message", n.Message))
}

// Latest retorna a notificação visível, se houver
func (s *Snackbar) Latest() (betslip.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return betslip.Notification{}, false
	}
	return *s.last, true
}

// Dismiss remove a notificação visível
func (s *Snackbar) Dismiss() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}
