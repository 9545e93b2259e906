// Package config loads and validates the server configuration.
//
// Values come from three places, highest priority first: environment
// variables, an optional YAML file, and built-in defaults. Every key maps to
// an environment variable by upper-casing it and replacing dots with
// underscores:
//
//	server.port              SERVER_PORT
//	db.host                  DB_HOST
//	jwt.private_key_path     JWT_PRIVATE_KEY_PATH
//	registration.next_route  REGISTRATION_NEXT_ROUTE
//	metrics.enabled          METRICS_ENABLED
//	tracing.enabled          TRACING_ENABLED
//	cors.allowed_origins     CORS_ALLOWED_ORIGINS (comma separated)
//
// Load returns the assembled Config; Validate reports every problem at once.
//
//	cfg, err := config.Load(configPath)
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
package config
