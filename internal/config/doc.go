// Package config provides centralized configuration management for the
// extraction archive.
//
// # Configuration Sources
//
// Configuration is layered, lowest precedence first:
//
//	1. Default()
//	2. A YAML file (config.yaml, configs/config.yaml, or $ARCHIVE_CONFIG)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern ARCHIVE_<SECTION>_<FIELD>:
//
//	ARCHIVE_SERVER_PORT=8080
//	ARCHIVE_PATHS_DATA_DIR=/srv/archive/data
//	ARCHIVE_INGEST_WORKERS=8
//	ARCHIVE_LOGGING_LEVEL=debug
//	ARCHIVE_COURSES_MAIN=2526ALL_OL_GENAI_00
//	ARCHIVE_COURSES_LABELS=2526ALL_OL_GENAI_00:Fall 2526,2425ALL_OL_GENAI_00:Spring 2425
//
// # Course Catalog
//
// CourseCatalog names the main, retake, old and POC courses and their display
// labels. It drives student situation rules and the statistics overview.
//
// # Path Management
//
// Paths resolves the data layout from PathsConfig:
//
//	paths, err := config.NewPaths(cfg.Paths)
//	paths.ExtractionsDir  // data/extractions
//	paths.StudentDataFile // data/Student_Data/Student_data.xlsx
package config
