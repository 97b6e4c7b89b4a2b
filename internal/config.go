package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	SecretKey         string        `env:"SECRET_KEY,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	MediaDir       string `env:"MEDIA_DIR,required=true"`
	AvatarDir      string `env:"AVATAR_DIR,required=true"`

	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,required=true"`
	PingInterval time.Duration `env:"PING_INTERVAL,required=true"`
	PongTimeout  time.Duration `env:"PONG_TIMEOUT,required=true"`
	ReadLimit    int64         `env:"READ_LIMIT,required=true"`

	CharReplacement  string `env:"CHARACTER_REPLACEMENT,required=true"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,required=true"`
	MaxMediaSize     int    `env:"MAX_MEDIA_SIZE,required=true"`
	LimitMessages    *int   `env:"LIMIT_MESSAGES"`

	IndexBufferSize int           `env:"INDEX_BUFFER_SIZE,required=true"`
	GCInterval      time.Duration `env:"GC_INTERVAL,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
