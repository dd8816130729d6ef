// Package config loads runtime configuration for the docsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the sync server
//	-d string   path of the local sqlite database
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "database_file": "docsync.db",
//	  "online_check_interval": "3s",
//	  "s3_base_endpoint": "http://127.0.0.1:9000",
//	  "s3_bucket": "docsync"
//	}
//
// This package does not read environment variables directly; use the JSON
// file or flags to configure values.
package config
