package httpserver

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type Server struct {
	app *fiber.App
}

func NewServer() *Server {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
		)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	return &Server{app: app}
}

// App exposes the fiber app so modules can mount their routes.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start(addr string) error {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt)
		<-quit

		log.Info("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.app.ShutdownWithContext(ctx)
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
