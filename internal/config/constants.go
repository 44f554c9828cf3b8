package config

import "time"

// Application constants
const (
	AppName    = "Blackboard Extraction Archive"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Uploads
	DefaultMaxUploadBytes = 32 << 20

	// WebSocket
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// File Paths (relative to the working directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	ExtractionsDirName  = "extractions"
	StudentDataDirName  = "Student_Data"
	StudentDataFileName = "Student_data.xlsx"
	CertifiedFileName   = "Certified_Students.xlsx"
	SnapshotExportName  = "snapshot.csv"
	CourseKPIExportName = "course_kpis.csv"

	// Ingest
	DefaultIngestWorkers = 4
	DefaultHeaderScan    = 30
	DefaultWatchDebounce = 500 * time.Millisecond

	// Merge
	FallbackSheet   = "Sheet1"
	HoursSkipRows   = 3
	MinPassingHours = 0.5
	MinPassingGrade = 50.0
)

// API Endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
