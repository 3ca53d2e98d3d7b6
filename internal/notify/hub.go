package notify

import (
	"net/http"
	"time"

	"questboard/internal/metrics"
	"questboard/internal/model"
	"questboard/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	telegramID int64
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
}

// Hub fans committed events out to every open websocket of a user. Delivery is best
// effort: a slow client drops events instead of blocking the caller.
type Hub struct {
	clients *xsync.MapOf[int64, *xsync.MapOf[*client, struct{}]]
}

func NewHub() *Hub {
	return &Hub{
		clients: xsync.NewMapOf[int64, *xsync.MapOf[*client, struct{}]](),
	}
}

func (h *Hub) Notify(telegramID int64, event model.Event) {
	conns, ok := h.clients.Load(telegramID)
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logger.Logger().Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	conns.Range(func(c *client, _ struct{}) bool {
		select {
		case c.send <- msg:
		default:
			logger.Logger().Warn("dropping notification for slow client",
				zap.Int64("telegram_id", telegramID),
				zap.String("type", event.Type))
		}
		return true
	})
}

// Connections reports how many sockets the user has open.
func (h *Hub) Connections(telegramID int64) int {
	conns, ok := h.clients.Load(telegramID)
	if !ok {
		return 0
	}
	return conns.Size()
}

// ServeWS upgrades the request and streams the user's events until the socket closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, telegramID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		telegramID: telegramID,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	h.register(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) {
	conns, _ := h.clients.LoadOrCompute(c.telegramID, func() *xsync.MapOf[*client, struct{}] {
		return xsync.NewMapOf[*client, struct{}]()
	})
	conns.Store(c, struct{}{})
	metrics.WSConnections.Inc()
}

func (h *Hub) unregister(c *client) {
	if conns, ok := h.clients.Load(c.telegramID); ok {
		if _, loaded := conns.LoadAndDelete(c); loaded {
			metrics.WSConnections.Dec()
			close(c.done)
		}
	}
}

// readLoop only watches for the client going away; clients never send commands.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Logger().Info("websocket closed", zap.Int64("telegram_id", c.telegramID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
