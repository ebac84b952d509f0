package config

import "time"

// Application constants shared across the SalesPulse service.
const (
	// Application info
	AppName    = "SalesPulse"
	AppVersion = "1.0.0"

	// Analysis constants. The IQR multiplier and correlation threshold are
	// fixed by the analysis contract, not tunable per deployment.
	IQRMultiplier             = 1.5
	CorrelationThreshold      = 0.3
	MaxCategoricalCardinality = 50
	MaxCategoricalColumns     = 2
	TopCorrelations           = 3
	TopCategories             = 3
	OutlierExamples           = 3
	PreviewRows               = 10

	// SalesTrendFileName is the fixed name of the rendered trend chart.
	// Every render overwrites the previous chart.
	SalesTrendFileName = "sales_trend.png"

	// Upload limits
	DefaultMaxUploadBytes = 64 << 20 // 64MB
	UploadExtCSV          = ".csv"
	UploadExtXLSX         = ".xlsx"

	// Agent defaults
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1:8b"
	DefaultNumPredict    = 250
	MaxAgentIterations   = 8

	// MaxChatHistoryMessages caps the stored conversation per dataset,
	// counted without the system message. Oldest turns are dropped first.
	MaxChatHistoryMessages = 40

	// Rate limiting
	DefaultRateLimit = 10 // requests per second on upload/chat
	DefaultBurstSize = 20

	// Network timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	OllamaTimeout       = 5 * time.Minute
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultUploadsDir = "data/uploads"
	DefaultChartsDir  = "data/charts"
	DefaultReportsDir = "data/reports"

	// Operation timeouts
	DefaultOperationTimeout = 10 * time.Minute
	DefaultShutdownTimeout  = 30 * time.Second
)
