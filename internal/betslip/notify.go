package betslip

import (
	"context"
	"time"
)

// Severity da notificação exibida ao usuário
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Mensagens exibidas ao usuário no resultado do envio
const (
	MsgBetsPlaced        = "Bets placed. Good luck!"
	MsgInsufficientFunds = "Insufficient Funds"
	MsgUnidentifiedError = "Unidentified Error"
)

// Notification é o aviso visível ao usuário (snackbar)
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Notifier entrega notificações ao usuário
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapta uma função a Notifier
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }
