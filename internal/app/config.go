package app

import (
	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	// CatalogProvider selects the similarity backend: "auto", "qdrant"
	// or "memory".
	CatalogProvider string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:            envutil.GetEnv("PORT", "8080", log),
		ServiceName:     envutil.GetEnv("SERVICE_NAME", "firmoscope", log),
		Environment:     envutil.GetEnv("SERVICE_ENV", "development", log),
		Version:         envutil.GetEnv("SERVICE_VERSION", "dev", log),
		CatalogProvider: envutil.GetEnv("CATALOG_PROVIDER", "auto", log),
	}
}
