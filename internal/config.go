package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	TypingTTL       time.Duration `env:"TYPING_TTL,default=3s"`
	DefaultPageSize int           `env:"DEFAULT_PAGE_SIZE,default=20"`
	MaxPageSize     int           `env:"MAX_PAGE_SIZE,default=100"`

	CensorReplacement string `env:"CENSOR_REPLACEMENT,default=*"`
	// NotifySenderRead controls whether a read by the message's own
	// sender emits a message_read notification.
	NotifySenderRead bool `env:"NOTIFY_SENDER_READ,default=false"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
