// Package config loads runtime configuration for the Spotter client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST API
//	-s string   URL of the social event-stream endpoint
//	-m string   URL of the community event-stream endpoint
//	-t int      request timeout (seconds)
//	-d string   path to the local SQLite database file
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "12s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.example.com",
//	  "social_socket_url": "wss://api.example.com/social",
//	  "community_socket_url": "wss://api.example.com/community",
//	  "request_timeout": "12s",
//	  "db_path": "spotter.db"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
