// Package config provides server configuration for the Game ID Server.
//
// The config package handles:
//   - Loading settings from environment variables (and a .env file, loaded by main)
//   - Overriding them with command-line flags
//   - Validation of the combined result
//
// Environment:
//
//	PORT                      HTTP port (3001)
//	HOST                      bind address (0.0.0.0)
//	GAMEID_TTL                lifetime of a game ID (12m)
//	GAMEID_ARCHIVE            none | file | redis (none)
//	GAMEID_ARCHIVE_DIR        directory for the file archive (archive)
//	LOG_FORMAT                text | json (text)
//	DEBUG                     enable debug logging (false)
//	NGROK_ENABLED             start an ngrok tunnel (false)
//	NGROK_AUTHTOKEN           ngrok token, NGROK_AUTH_TOKEN also accepted
//	NGROK_DOMAIN              custom ngrok domain
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.RegisterFlags(flag.CommandLine)
//	flag.Parse()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
