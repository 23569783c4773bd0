package server

import (
	"PoolServer/log"
	"PoolServer/pool"
	"errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"net"
	"time"
)

// connectionTask builds the job that serves one accepted connection. The job owns conn and closes it.
func (s *Server) connectionTask(connectionID uuid.UUID, conn net.Conn) pool.Job {
	accepted := time.Now()

	return func() {
		defer conn.Close()

		code, err := handleConnection(conn, s.config.ReadBufferSize)
		if errors.Is(err, errEmptyRequest) {
			log.L().Debug("Connection closed without a request", zap.String("connectionID", connectionID.String()))
			return
		}
		if err != nil {
			log.L().Error("Failed to handle connection", zap.String("connectionID", connectionID.String()), zap.Error(err))
			return
		}
		s.metrics.ResponseWritten(code)

		log.L().Debug("Handled connection",
			zap.String("connectionID", connectionID.String()),
			zap.String("remoteAddress", conn.RemoteAddr().String()),
			zap.Int("code", code),
			zap.Duration("elapsed", time.Since(accepted)))
	}
}
