package internal

import (
	"chat-sync/infrastructure/ws"
	"chat-sync/runtime"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

type Config struct {
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	DebugPort         int           `env:"DEBUG_PORT,default=6060"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`

	EditWindow    time.Duration `env:"EDIT_WINDOW,default=15m"`
	TypingTimeout time.Duration `env:"TYPING_TIMEOUT,default=5s"`
	AutoJoin      bool          `env:"AUTO_JOIN,default=true"`

	AllowedOrigins string        `env:"ALLOWED_ORIGINS"`
	MaxFrameBytes  int64         `env:"MAX_FRAME_BYTES,default=65536"`
	SendBuffer     int           `env:"SEND_BUFFER,default=256"`
	RateLimit      float64       `env:"RATE_LIMIT,default=20"`
	RateBurst      int           `env:"RATE_BURST,default=40"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=54s"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait      time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxHistory     int           `env:"MAX_HISTORY,default=100"`

	DeliveryTimeout   time.Duration `env:"DELIVERY_TIMEOUT,default=1s"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=1s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=5s"`
	TelemetryBuffer   int           `env:"TELEMETRY_BUFFER,default=1024"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return config, fmt.Errorf("config error: %w", err)
	}
	if config.PingInterval >= config.PongWait {
		return config, fmt.Errorf("PING_INTERVAL (%s) must be shorter than PONG_WAIT (%s)", config.PingInterval, config.PongWait)
	}
	return config, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) Transport() ws.Config {
	return ws.Config{
		AllowedOrigins: c.Origins(),
		MaxFrameBytes:  c.MaxFrameBytes,
		SendBuffer:     c.SendBuffer,
		PongWait:       c.PongWait,
		PingInterval:   c.PingInterval,
		WriteWait:      c.WriteWait,
		RateLimit:      rate.Limit(c.RateLimit),
		RateBurst:      c.RateBurst,
		MaxHistory:     c.MaxHistory,
	}
}

func (c Config) Runtime() runtime.Config {
	return runtime.Config{
		TypingTimeout:     c.TypingTimeout,
		DeliveryTimeout:   c.DeliveryTimeout,
		SinkTimeout:       c.SinkTimeout,
		HeartbeatInterval: c.HeartbeatInterval,
		RestartInterval:   c.RestartInterval,
		TelemetryBuffer:   c.TelemetryBuffer,
	}
}
