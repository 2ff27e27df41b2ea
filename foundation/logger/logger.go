// Package logger provides a convience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateScheme is the output path scheme that writes to a file rotated by
// size, e.g. rotate:///var/log/node.log?maxsize=100&maxbackups=3&maxage=7.
const RotateScheme = "rotate"

var registerOnce sync.Once

// New constructs a Sugared Logger that writes to stdout and
// provides human readable timestamps.
func New(service string, outputPaths ...string) (*zap.SugaredLogger, error) {
	var regErr error
	registerOnce.Do(func() {
		regErr = zap.RegisterSink(RotateScheme, newRotateSink)
	})
	if regErr != nil {
		return nil, regErr
	}

	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	if outputPaths != nil {
		config.OutputPaths = outputPaths
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// RotatePath builds the output path for a rotated log file.
func RotatePath(file string, maxSizeMB int, maxBackups int, maxAgeDays int) string {
	u := url.URL{
		Scheme: RotateScheme,
		Path:   file,
	}

	q := u.Query()
	q.Set("maxsize", strconv.Itoa(maxSizeMB))
	q.Set("maxbackups", strconv.Itoa(maxBackups))
	q.Set("maxage", strconv.Itoa(maxAgeDays))
	u.RawQuery = q.Encode()

	return u.String()
}

// =============================================================================

// rotateSink adapts the lumberjack logger to the zap sink interface.
type rotateSink struct {
	*lumberjack.Logger
}

// Sync is a no-op, lumberjack writes straight to the file.
func (rotateSink) Sync() error {
	return nil
}

func newRotateSink(u *url.URL) (zap.Sink, error) {
	if u.Path == "" {
		return nil, fmt.Errorf("logger: %s output needs a file path", RotateScheme)
	}

	q := u.Query()

	intParam := func(name string) (int, error) {
		v := q.Get(name)
		if v == "" {
			return 0, nil
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("logger: %s: %w", name, err)
		}
		return n, nil
	}

	maxSize, err := intParam("maxsize")
	if err != nil {
		return nil, err
	}

	maxBackups, err := intParam("maxbackups")
	if err != nil {
		return nil, err
	}

	maxAge, err := intParam("maxage")
	if err != nil {
		return nil, err
	}

	sink := rotateSink{
		Logger: &lumberjack.Logger{
			Filename:   u.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		},
	}

	return sink, nil
}
