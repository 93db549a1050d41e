// Package api serves the local HTTP control surface for cut jobs.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"cortado/history"
	"cortado/internal/logging"
	"cortado/models"
)

// DefaultPort is the loopback port the control surface listens on.
const DefaultPort = 8790

// JobRunner is the orchestrator surface the handlers drive.
type JobRunner interface {
	StartJob(ctx context.Context, source *models.VideoSource, segmentLength int) (<-chan models.JobState, error)
	Current() models.JobState
	Last() models.JobState
}

// JobLister reads the job history.
type JobLister interface {
	List(ctx context.Context, limit int) ([]history.Job, error)
}

type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
}

type ServerConfig struct {
	Port                 int
	Jobs                 JobRunner
	History              JobLister
	DefaultSegmentLength int
	MaxUploadBytes       int64
	Logger               logrus.FieldLogger
	StartTime            time.Time
	Version              string
}

// NewServer creates a server bound to 127.0.0.1 only.
func NewServer(cfg ServerConfig) *Server {
	cfg.Logger = logging.WithComponent(cfg.Logger, "api")
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  0,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		log: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
