// Package config provides configuration management for the cvscan server
// and CLI.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (CVSCAN_CONFIG, or config.yaml / configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CVSCAN_<SECTION>_<FIELD>:
//
//	CVSCAN_SERVER_PORT=8080
//	CVSCAN_LOGGING_LEVEL=debug
//	CVSCAN_ANALYSIS_DEFAULT_DEGREE=9
//	CVSCAN_PATHS_BASE_DIR=/var/lib/cvscan
//
// # Path Management
//
// Paths lays out the data tree used by the dataset store and exporters:
//
//	paths, _ := cfg.ResolvePaths()
//	paths.GetDatasetPath(50)        // <data>/datasets/scan_50.csv
//	paths.GetReportPath("fit.csv")  // <data>/reports/fit.csv
package config
