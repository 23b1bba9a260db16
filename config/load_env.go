package config

import (
	"log/slog"

	"github.com/subosito/gotenv"
)

// EnvDir is where the per-environment dotenv files live, relative to the
// working directory.
var EnvDir = "config/envs"

func LoadEnv(env string) {
	envFile := EnvDir + "/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("[Config] No .env file found, using OS environment",
			slog.String("file", envFile))
	}
}
