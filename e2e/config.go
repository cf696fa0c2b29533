package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_URL points to a running chat-sync server, the suite is skipped when empty
	ServerURL string `envconfig:"SERVER_URL"`
	// JWT_SECRET must match the server secret to mint identities
	JWTSecret string `envconfig:"JWT_SECRET"`
	// ROOM must exist and list both identities as participants (see cmd/tools/seed.go)
	Room   string `envconfig:"ROOM" default:"general"`
	Sender string `envconfig:"E2E_SENDER" default:"alice"`
	Reader string `envconfig:"E2E_READER" default:"bob"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
