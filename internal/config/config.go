// FILENAME: internal/config/config.go
package config

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Global Configuration
const (
	// Engine
	DefaultThreads            = 10
	DefaultRetries            = 1
	DefaultTimeout            = 7 * time.Second
	DefaultProtocol           = "h1"
	RetryBackoff              = 100 * time.Millisecond // multiplied by attempt+1
	SyntheticStatus           = 999
	DefaultQuarantineCooldown = 30 * time.Second
	DefaultMaxConnsPerHost    = 50
	MaxResponseSize           = 10 * 1024 * 1024 // 10MB
	IdleConnTimeout           = 90 * time.Second
	MaxIdleConns              = 100
	H3KeepAlive               = 15 * time.Second
	DefaultUserAgent          = "Mozilla/5.0 (compatible; mutafuzz)"

	// Scripts
	DefaultScript            = "default"
	DefaultClassifyGroup     = 1
	DefaultCalibrationSettle = 500 * time.Millisecond

	// Output
	DefaultLogFile   = "mutafuzz.log"
	DefaultOutputDir = "results"
)

// Console Colors (Palette)
var (
	ColorFocus  = lipgloss.Color("39")  // Vivid Blue
	ColorAccent = lipgloss.Color("212") // Pink
	ColorErr    = lipgloss.Color("196") // Red
	ColorWarn   = lipgloss.Color("214") // Orange
	ColorOk     = lipgloss.Color("42")  // Green
	ColorSub    = lipgloss.Color("240") // Dark Grey
)
