// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var errSlowConsumer = errors.New("outbound buffer full")

// wsSink adapts a websocket connection to game.Sink. The room never blocks on
// it: messages are buffered and written by writePump.
type wsSink struct {
	out     chan game.Message
	closing chan struct{}
	once    sync.Once
	code    websocket.StatusCode
	reason  string
}

func newWSSink() *wsSink {
	return &wsSink{
		out:     make(chan game.Message, sendBuffer),
		closing: make(chan struct{}),
	}
}

func (s *wsSink) Send(msg game.Message) error {
	select {
	case <-s.closing:
		return errors.New("connection closing")
	default:
	}
	select {
	case s.out <- msg:
		return nil
	default:
		s.shutdown(SlowConsumerCode, "slow consumer")
		return errSlowConsumer
	}
}

func (s *wsSink) Close(reason string) error {
	s.shutdown(RoomClosingCode, reason)
	return nil
}

func (s *wsSink) shutdown(code websocket.StatusCode, reason string) {
	s.once.Do(func() {
		s.code, s.reason = code, reason
		close(s.closing)
	})
}

// writePump owns every write to c: queued messages, keep-alive pings and the
// final close frame.
func (s *wsSink) writePump(ctx context.Context, c *websocket.Conn, ping time.Duration, logger *logrus.Entry) {
	if ping <= 0 {
		ping = 30 * time.Second
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	write := func(msg game.Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Errorf("marshal %s: %v", msg.Type, err)
			return nil
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return c.Write(wctx, websocket.MessageText, data)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.out:
			if err := write(msg); err != nil {
				logger.Debugf("write: %v", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				logger.Debugf("ping: %v", err)
				return
			}
		case <-s.closing:
			// flush what the room queued before closing
			for drained := false; !drained; {
				select {
				case msg := <-s.out:
					if err := write(msg); err != nil {
						return
					}
				default:
					drained = true
				}
			}
			c.Close(s.code, s.reason)
			return
		}
	}
}

// RoomWSHandler upgrades GET /ws?room=<id>&resume=<token>&name=<handle> and
// attaches the socket to the room until either side closes.
func RoomWSHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			roomID = game.DefaultRoomID
		}
		room, ok := srv.Rooms.Get(roomID)
		if !ok {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}

		var clientID string
		if token := r.URL.Query().Get("resume"); token != "" && srv.Signer != nil {
			id, err := srv.Signer.AuthenticateResumeToken(token, roomID)
			if err != nil {
				srv.Logger.Infof("ignoring resume token for room %s: %v", roomID, err)
			} else {
				clientID = id
			}
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: srv.Config.AllowedOrigins,
		})
		if err != nil {
			srv.Logger.Warnf("WebSocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.CloseNow()
		c.SetReadLimit(srv.Config.MaxMessageBytes)

		ip := clientIP(r)
		if !srv.connCounter().acquire(ip) {
			srv.Logger.Warnf("too many connections from %s", ip)
			c.Close(websocket.StatusPolicyViolation, "Too many connections")
			return
		}
		defer srv.connCounter().release(ip)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sink := newWSSink()
		conn := room.Attach(sink, game.AttachOptions{ClientID: clientID, Handle: r.URL.Query().Get("name")})
		if conn == nil {
			c.Close(RoomGoneCode, "room closed")
			return
		}
		middleware.LogWebSocketConnect(srv.Logger, r, roomID, conn.ID)
		log := srv.Logger.WithFields(logrus.Fields{"room": roomID, "client": conn.ID})

		pumpDone := make(chan struct{})
		go func() {
			defer close(pumpDone)
			defer cancel()
			sink.writePump(ctx, c, srv.Config.PingInterval(), log)
		}()

		limiter := frameLimiter(srv.Config.FramesPerSec, srv.Config.FrameBurst)
		err = readRoomMessages(ctx, c, room, conn, sink, limiter, log)
		room.Detach(conn)
		cancel()
		<-pumpDone
		middleware.LogWebSocketDisconnect(srv.Logger, r, roomID, conn.ID, err)
	}
}

// readRoomMessages decodes client frames and hands them to the room until the
// socket fails or ctx ends. Malformed frames are answered with an ERROR and
// never reach the room. limiter paces reads, so a flooding client is slowed to
// the configured frame rate.
func readRoomMessages(ctx context.Context, c *websocket.Conn, room *game.Room, conn *game.Connection, sink *wsSink, limiter *rate.Limiter, log *logrus.Entry) error {
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		action, err := decodeAction(data)
		if err != nil {
			var re *game.RuleError
			if errors.As(err, &re) {
				log.Debugf("rejected frame: %v", re)
				_ = sink.Send(game.ErrorMessage(re.Code, re.Why))
			}
			continue
		}
		room.Handle(conn, action)
	}
}
