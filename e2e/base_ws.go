package e2e

import (
	"chat-sync/auth"
	"chat-sync/client"
	"chat-sync/domain"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseWSSuite struct {
	suite.Suite
	Config   Config
	verifier *auth.JWTVerifier
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWSSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("SERVER_URL is not set")
	}
	s.Require().NotEmpty(s.Config.JWTSecret, "JWT_SECRET is required to mint test identities")
	s.verifier = auth.NewJWTVerifier(s.Config.JWTSecret)
}

// Step prints a colorized header for a scenario step
func (s *BaseWSSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Connect starts a client shim for identity and waits until it is online.
// The client is stopped when the returned cancel is called.
func (s *BaseWSSuite) Connect(identity domain.IdentityID) (*client.Client, context.CancelFunc) {
	token, err := s.verifier.GenerateToken(identity, []string{"user"}, time.Hour)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	c := client.New(logs.GetLoggerFromLevel(slog.LevelWarn), client.Config{
		ServerURL:      s.Config.ServerURL,
		Token:          token,
		InitialBackoff: 50 * time.Millisecond,
	})
	go func() { _ = c.Run(ctx) }()
	s.Require().Eventually(c.Connected, 5*time.Second, 20*time.Millisecond,
		"%s could not connect to %s", identity, s.Config.ServerURL)
	return c, cancel
}
