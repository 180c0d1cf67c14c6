package config

// Application constants
const (
	AppName    = "cvscan"
	AppVersion = "1.0.0"

	// Dataset file layout
	DatasetPrefix = "scan_"
	DatasetExt    = ".csv"
)
