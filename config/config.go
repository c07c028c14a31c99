package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Rasterizer backends selectable through RASTERIZER
const (
	RasterizerFitz   = "fitz"
	RasterizerPDFium = "pdfium"
	RasterizerMagick = "magick"
)

// ImageMagick invocation strategies selectable through MAGICK_MODE
const (
	MagickModeBulk    = "bulk"
	MagickModePerPage = "per-page"
)

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP   string
	ListenAddrPort string
	TempRoot       string // every request gets its own workspace below this
	Rasterizer     string
	MagickPath     string // resolved ImageMagick binary, empty unless Rasterizer is magick
	MagickMode     string
	MaxUploadMB    int
	ConvertTimeout int // seconds
	SweepInterval  int // minutes, 0 disables the sweeper
	SweepMaxAge    int // minutes
	RenderConfig
}

// RenderConfig stores the rasterization defaults
type RenderConfig struct {
	Density        int // DPI
	Width          int // target pixel width, height follows the aspect ratio
	DefaultQuality int // JPEG quality used when calidad is absent
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}
	renderConfigLive := RenderConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Workspace configuration
	tempRoot := filepath.ToSlash(getEnv("TEMP_ROOT", filepath.Join(os.TempDir(), "pdf2jpg")))
	tempRootAbs, err := filepath.Abs(tempRoot)
	if err != nil {
		logger.Error("Failed creating absolute path for temp root", "path", tempRoot, "error", err)
		tempRootAbs = tempRoot
	}
	serverConfigLive.TempRoot = tempRootAbs

	serverConfigLive.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 32)
	serverConfigLive.ConvertTimeout = getEnvInt("CONVERT_TIMEOUT", 120)
	serverConfigLive.SweepInterval = getEnvInt("SWEEP_INTERVAL", 10)
	serverConfigLive.SweepMaxAge = getEnvInt("SWEEP_MAX_AGE", 30)

	// Rasterizer configuration
	serverConfigLive.Rasterizer = strings.ToLower(getEnv("RASTERIZER", RasterizerFitz))
	switch serverConfigLive.Rasterizer {
	case RasterizerFitz, RasterizerPDFium, RasterizerMagick:
	default:
		logger.Warn("Unknown rasterizer, falling back to fitz", "rasterizer", serverConfigLive.Rasterizer)
		serverConfigLive.Rasterizer = RasterizerFitz
	}

	serverConfigLive.MagickMode = strings.ToLower(getEnv("MAGICK_MODE", MagickModeBulk))
	if serverConfigLive.MagickMode != MagickModeBulk && serverConfigLive.MagickMode != MagickModePerPage {
		logger.Warn("Unknown magick mode, falling back to bulk", "mode", serverConfigLive.MagickMode)
		serverConfigLive.MagickMode = MagickModeBulk
	}

	if serverConfigLive.Rasterizer == RasterizerMagick {
		magickPath, err := FindMagick(getEnv("MAGICK_PATH", ""), logger)
		if err != nil {
			logger.Warn("ImageMagick not found, conversions will fail until it is installed", "error", err)
		}
		serverConfigLive.MagickPath = magickPath
	}

	// Render defaults
	renderConfigLive.Density = getEnvInt("RENDER_DENSITY", 100)
	renderConfigLive.Width = getEnvInt("RENDER_WIDTH", 1920)
	renderConfigLive.DefaultQuality = getEnvInt("DEFAULT_QUALITY", 20)
	serverConfigLive.RenderConfig = renderConfigLive

	fmt.Println("\n========================================")
	fmt.Println("   pdf2jpg - PDF to JPEG conversion")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Rasterizer: %s\n", serverConfigLive.Rasterizer)

	logger.Info("Configuration loaded",
		"rasterizer", serverConfigLive.Rasterizer,
		"tempRoot", serverConfigLive.TempRoot,
		"density", renderConfigLive.Density,
		"width", renderConfigLive.Width,
		"defaultQuality", renderConfigLive.DefaultQuality)

	return serverConfigLive, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "stdout")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdf2jpg.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// FindMagick resolves the ImageMagick binary. An explicit path wins, then
// "magick" (v7) and finally the legacy "convert" on the PATH.
func FindMagick(explicitPath string, logger *slog.Logger) (string, error) {
	if explicitPath != "" {
		if err := checkExecutable(explicitPath, logger); err != nil {
			return "", err
		}
		return explicitPath, nil
	}
	for _, name := range []string{"magick", "convert"} {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("ImageMagick executable found", "path", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("ImageMagick not found in PATH (tried magick, convert)")
}

// checkExecutable verifies that an executable exists at the given path
func checkExecutable(path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		logger.Error("Cannot find executable at location specified", "path", path)
		return err
	}
	if info.IsDir() {
		logger.Error("Executable path is a directory", "path", path)
		return fmt.Errorf("%s is a directory", path)
	}
	logger.Debug("Executable found", "path", path)
	return nil
}
