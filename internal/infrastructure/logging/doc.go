// Package logging provides the structured logger shared by sensorhub
// components.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default "service" and "version" attributes:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Passwords, password hashes, recovery secrets and tokens must never be
// logged.
package logging
