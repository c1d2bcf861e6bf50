package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LoadEnv loads .env from the working directory when present. Variables
// already set in the process environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Msg("no .env file, using process environment")
			return
		}
		log.Warn().Err(err).Msg("load .env")
	}
}
