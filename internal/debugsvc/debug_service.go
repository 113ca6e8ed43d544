// Package debugsvc serves the debug surface: a websocket endpoint that
// streams the log hub and accepts line-coding control frames. Setting the
// baud rate to 1200 triggers the bootloader reset, exactly like the CDC
// interface on the board.
package debugsvc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/toshok/babelfish/internal/board"
	"github.com/toshok/babelfish/pkg/loghub"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type lineCodingMsg struct {
	Baud uint32 `json:"baud"`
}

type Service struct {
	log  *zap.Logger
	addr string
	hub  *loghub.Hub
	cdc  *board.CDC

	ready chan struct{}
}

func New(log *zap.Logger, addr string, hub *loghub.Hub, cdc *board.CDC) *Service {
	return &Service{
		log:   log,
		addr:  addr,
		hub:   hub,
		cdc:   cdc,
		ready: make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Start(ctx context.Context) error {
	if s.addr == "" {
		close(s.ready)
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/logs", s.handleLogs)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	close(s.ready)
	s.log.Info("debug surface listening", zap.String("addr", s.addr))
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) handleLogs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeLine := func(line string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, []byte(line))
	}

	// control frames from the client
	go func() {
		for {
			var msg lineCodingMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Baud != 0 {
				s.cdc.LineCoding(msg.Baud)
			}
		}
	}()

	for _, line := range s.hub.Snapshot() {
		if writeLine(line) != nil {
			return
		}
	}
	ch, unsub := s.hub.Subscribe(0)
	defer unsub()
	for line := range ch {
		if writeLine(line) != nil {
			return
		}
	}
}
