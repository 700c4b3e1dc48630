package gateway

import (
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/gateway/handlers"
	"marksboard/backend/internal/shared"
)

// Services holds everything the router dispatches to.
// It is built once in main.go and handed to SetupRoutes.
type Services struct {
	Marks   handlers.MarksSubmitter
	Engine  handlers.Analyzer
	Auth    handlers.Authenticator
	Store   handlers.Pinger
	Catalog *catalog.Catalog

	Version        string
	CookieSecure   bool
	CORS           shared.CORSConfig
	RequestTimeout time.Duration // 0 uses the default

	// Keep connections to close them later when the server shuts down
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// OnClose registers a resource to be closed by Close, in reverse order.
func (s *Services) OnClose(name string, c io.Closer) {
	s.closers = append(s.closers, namedCloser{name: name, c: c})
}

// Close closes registered resources. Should be called via defer in main().
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		nc := s.closers[i]
		if err := nc.c.Close(); err != nil {
			log.Warn().Err(err).Str("resource", nc.name).Msg("error closing resource")
		}
	}
	s.closers = nil
}
