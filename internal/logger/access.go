package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AccessLogConfig configures the host-facing operational log sink:
// connection lifecycle, LWT emission, and authentication failures,
// mirrored alongside the protocol-level slog logger above.
type AccessLogConfig struct {
	// FilePath, when non-empty, routes output through a rotated file
	// instead of stdout.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AccessLog is a zap.Logger configured for JSON production output,
// the onLog sink named in spec.md §6.
type AccessLog struct {
	*zap.Logger
}

// NewAccessLog builds an AccessLog per cfg. A zero-value cfg logs
// JSON to stdout.
func NewAccessLog(cfg AccessLogConfig) (*AccessLog, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: defaultInt(cfg.MaxBackups, 3),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, zap.InfoLevel)
	return &AccessLog{Logger: zap.New(core)}, nil
}

// ClientConnected records a successful CONNECT.
func (a *AccessLog) ClientConnected(clientID, remoteAddr, username string) {
	a.Info("client connected",
		zap.String("client_id", clientID),
		zap.String("remote_addr", remoteAddr),
		zap.String("username", username))
}

// ClientDisconnected records a session's departure, graceful or not.
func (a *AccessLog) ClientDisconnected(clientID string, graceful bool) {
	a.Info("client disconnected",
		zap.String("client_id", clientID),
		zap.Bool("graceful", graceful))
}

// WillPublished records LWT emission on an ungraceful disconnect.
func (a *AccessLog) WillPublished(clientID, topic string) {
	a.Info("will published",
		zap.String("client_id", clientID),
		zap.String("topic", topic))
}

// AuthFailed records a rejected CONNECT; the password itself is
// never logged.
func (a *AccessLog) AuthFailed(clientID, username, reason string) {
	a.Warn("authentication failed",
		zap.String("client_id", clientID),
		zap.String("username", username),
		zap.String("reason", reason))
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
