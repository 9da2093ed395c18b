package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const DefaultReconnectDelay = 3 * time.Second

// WSClient mantém uma conexão com o /ws do odds-service e assina no servidor
// apenas os eventos que têm assinantes no Hub.
type WSClient struct {
	URL            string
	Log            *zap.Logger
	Hub            *Hub
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer

	OnError func(string) // métricas por fase

	mu   sync.Mutex // protege conn e serializa escritas
	conn *websocket.Conn
}

// NewWSClient cria o cliente e liga os hooks do Hub aos frames subscribe/unsubscribe
func NewWSClient(url string, hub *Hub, log *zap.Logger) *WSClient {
	c := &WSClient{
		URL:            url,
		Log:            log.With(zap.String("component", "ws_feed")),
		Hub:            hub,
		ReconnectDelay: DefaultReconnectDelay,
		Dialer:         websocket.DefaultDialer,
	}
	hub.OnFirst = func(id string) { c.send(ClientMsg{Type: "subscribe", EventID: id}) }
	hub.OnLast = func(id string) { c.send(ClientMsg{Type: "unsubscribe", EventID: id}) }
	return c
}

// Run conecta e escuta até ctx terminar, reconectando após cada queda
func (c *WSClient) Run(ctx context.Context) error {
	for {
		if err := c.connectAndListen(ctx); err != nil && ctx.Err() == nil {
			c.Log.Warn("connection closed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("connection")
			}
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS feed")
			return ctx.Err()
		case <-time.After(c.ReconnectDelay):
		}
	}
}

// connectAndListen estabelece a conexão, reenvia as assinaturas ativas
// e repassa as atualizações recebidas ao Hub.
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	for _, id := range c.Hub.Events() {
		if err := conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: id}); err != nil {
			c.conn = nil
			c.mu.Unlock()
			return err
		}
	}
	c.mu.Unlock()
	c.Log.Info("connected to odds WS", zap.String("url", c.URL))

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	// ReadMessage não observa ctx; fechar a conexão desbloqueia a leitura
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		u, ok, err := decodeEnvelope(message)
		if err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			if c.OnError != nil {
				c.OnError("decode")
			}
			continue
		}
		if ok {
			c.Hub.Broadcast(u)
		}
	}
}

// send escreve um frame se houver conexão. Sem conexão, a assinatura
// é reenviada no próximo connect a partir de Hub.Events.
func (c *WSClient) send(msg ClientMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.Log.Warn("ws write failed", zap.String("type", msg.Type), zap.String("event_id", msg.EventID), zap.Error(err))
	}
}
