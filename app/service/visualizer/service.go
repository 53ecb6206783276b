package visualizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"kgmemory/app/config"
	"kgmemory/app/service/memory"
	"log/slog"
	"net"

	_ "embed"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

//go:embed page.html
var pageTemplate string

var page = template.Must(template.New("page").Parse(pageTemplate))

var _ do.Shutdownable = (*Service)(nil)

// DiagramSource produces the mermaid text shown on the page.
type DiagramSource interface {
	Visualize() (string, error)
}

type Service struct {
	cfg    config.Visualizer
	source DiagramSource
	app    *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Visualizer, do.MustInvoke[*memory.Service](di)), nil
}

func NewService(cfg config.Visualizer, source DiagramSource) *Service {
	s := &Service{
		cfg:    cfg,
		source: source,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.app.Get("/", s.handleIndex)
	s.app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	})

	return s
}

func (s *Service) App() *fiber.App {
	return s.app
}

func (s *Service) handleIndex(c *fiber.Ctx) error {
	diagram, err := s.source.Visualize()
	if err != nil {
		slog.Error("Error in visualization server", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error generating graph")
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, map[string]any{
		"Refresh": s.cfg.RefreshSeconds,
		"Diagram": diagram,
	})
	if err != nil {
		slog.Error("Error rendering visualization page", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error generating graph")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// Listen binds the first free port starting at BasePort.
func (s *Service) Listen() (net.Listener, error) {
	for i := 0; i < s.cfg.PortAttempts; i++ {
		port := s.cfg.BasePort + i
		if port > 65535 {
			break
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, nil
		}

		slog.Debug("Port is busy", "port", port, "error", err)
	}

	return nil, fmt.Errorf("no free port in %d..%d", s.cfg.BasePort, s.cfg.BasePort+s.cfg.PortAttempts-1)
}

// Run serves the page until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return fmt.Errorf("failed to find free port: %w", err)
	}

	slog.Info("Visualization server running", "url", fmt.Sprintf("http://localhost:%d/", ln.Addr().(*net.TCPAddr).Port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return fmt.Errorf("failed to stop visualization server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("visualization server failed: %w", err)
		}
		return nil
	}
}

func (s *Service) Shutdown() error {
	return s.app.Shutdown()
}
