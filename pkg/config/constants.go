package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvLogLevel        = "STOREFRONT_LOG_LEVEL"
	EnvAPIURL          = "STOREFRONT_API_URL"
	EnvAPITimeout      = "STOREFRONT_API_TIMEOUT"
	EnvAPIRetryTries   = "STOREFRONT_API_RETRY_MAX_TRIES"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvRedisAddr       = "STOREFRONT_REDIS_ADDR"
	EnvClientCookie    = "STOREFRONT_CLIENT_COOKIE"
	EnvClientIdleTTL   = "STOREFRONT_CLIENT_IDLE_TTL"
	EnvStorageTTL      = "STOREFRONT_STORAGE_TTL"
	EnvCatalogCacheTTL = "STOREFRONT_CATALOG_CACHE_TTL"
	EnvMaxImageMB      = "STOREFRONT_MEDIA_MAX_IMAGE_MB"
	EnvCORSOrigins     = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)
