// Package config loads and validates sensorhub configuration.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// SENSORHUB_* environment variables. A dotenv file can seed the
// environment first (see LoadEnvFile), which is the usual place for
// SENSORHUB_JWT_SECRET during development.
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    return err
//	}
//	cfg, err := config.Load("configs/sensorhub.yaml")
//	if err != nil {
//	    return err
//	}
package config
