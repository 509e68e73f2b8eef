package log

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/motemen/go-loghttp"
)

// EnvDebug enables debug logging, including every HTTP exchange, when set
const EnvDebug = "CMSRELAY_DEBUG"

// Logger is the global logger instance
var Logger *slog.Logger

// InitLogger initializes the global logger
// It sets the log level to Debug if CMSRELAY_DEBUG is set
func InitLogger() {
	opts := &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}

	if os.Getenv(EnvDebug) != "" {
		opts.Level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// init initializes the logger when the package is imported
func init() {
	InitLogger()
}

func logRequest(req *http.Request) {
	Debug("HTTP request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", req.Header,
	)
}

func logResponse(resp *http.Response) {
	Debug("HTTP response",
		"method", resp.Request.Method,
		"url", resp.Request.URL.String(),
		"status", resp.Status,
		"status_code", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)
}

// Transport wraps base so that every request and response is logged at debug level.
// A nil base means http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loghttp.Transport{
		Transport:   base,
		LogRequest:  logRequest,
		LogResponse: logResponse,
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
