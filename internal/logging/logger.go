package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON process logger. When logstashAddr is set every entry is
// mirrored to Logstash as well; the returned writer is nil otherwise.
func New(level, logstashAddr string) (*zap.Logger, *LogstashWriter, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "time"

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stdout), zapLevel),
	}

	var shipper *LogstashWriter
	if logstashAddr != "" {
		w, err := NewLogstashWriter(logstashAddr)
		if err != nil {
			return nil, nil, err
		}
		shipper = w
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), w, zapLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(zap.String("service", "scicom-api"))
	return logger, shipper, nil
}
