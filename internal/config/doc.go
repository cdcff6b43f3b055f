// Package config reads process settings from the environment and holds the
// debug logging switch.
//
// # Environment
//
//   - PATHFINDER_DIR: data directory; jobs live in its jobs/ subdirectory.
//     Default is the working directory.
//   - PATHFINDER_LOG_LEVEL: "debug" turns on Debugf output.
//   - PATHFINDER_WORKERS: bound on parallel detection and decoding.
//     Default GOMAXPROCS.
//   - PATHFINDER_TESSDATA: Tesseract traineddata directory used to read
//     burned-in timestamps.
//
// # Logging
//
// Packages log through the standard logger with a "[Component]" prefix.
// Detail that only helps when chasing a problem goes through Debugf, which
// is silent until SetDebug(true).
package config
