// Package config provides centralized configuration management for the
// SalesPulse service. It handles loading configuration from multiple sources,
// validation, and path resolution for the on-disk data tree.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SALESPULSE_* for namespacing:
//
//	SALESPULSE_SERVER_PORT=8080
//	SALESPULSE_OLLAMA_BASE_URL=http://localhost:11434
//	SALESPULSE_OLLAMA_MODEL=llama3.1:8b
//	SALESPULSE_LOGGING_LEVEL=info
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which resolves every file system path relative to the executable location:
//
//	paths, _ := config.GetPaths()
//	chart := paths.SalesTrendPNG
//	upload := paths.GetUploadPath("a3f1-sales.csv")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
