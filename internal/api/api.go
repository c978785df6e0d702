package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"steam-market-harvester/internal/ingest"
	"steam-market-harvester/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StatsSource is implemented by the pipelines.
type StatsSource interface {
	Stats() *ingest.Stats
}

// Server is the optional read-only status surface of a running harvest.
type Server struct {
	sources  []StatsSource
	interval time.Duration
	upgrader websocket.Upgrader
	log      *logrus.Entry
	engine   *gin.Engine
}

func NewServer(log logrus.FieldLogger, sources ...StatsSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		sources:  sources,
		interval: 2 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:    logger.Component(log, "api"),
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.SetupRoutes(s.engine)
	return s
}

func (s *Server) SetupRoutes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/v1/stats", s.GetStats)
	r.GET("/ws", s.StreamStats)
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) snapshots() []ingest.Snapshot {
	out := make([]ingest.Snapshot, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.Stats().Snapshot())
	}
	return out
}

func (s *Server) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pipelines": s.snapshots()})
}

// StreamStats pushes a stats message immediately and then on every tick
// until the client goes away.
func (s *Server) StreamStats(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(gin.H{"pipelines": s.snapshots()}); err != nil {
			return
		}
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// ListenAndServe runs the server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Status server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
