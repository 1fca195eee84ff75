package logger

import (
	"fmt"
	"log"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
)

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// Prefixed returns a logger whose messages start with "[name] " in the given colour,
// e.g. Prefixed(logg, Yellow, "worker 1234")
func Prefixed(logg *zap.SugaredLogger, paint func(a ...interface{}) string, name string) *PrefixedLogger {
	return &PrefixedLogger{logg: logg, prefix: paint(fmt.Sprintf("[%v] ", name))}
}

type PrefixedLogger struct {
	logg   *zap.SugaredLogger
	prefix string
}

func (pl *PrefixedLogger) Infof(template string, args ...interface{}) {
	pl.logg.Infof(pl.prefix+template, args...)
}

func (pl *PrefixedLogger) Errorf(template string, args ...interface{}) {
	pl.logg.Errorf(pl.prefix+template, args...)
}

func (pl *PrefixedLogger) Error(err error) {
	pl.logg.Error(pl.prefix, err)
}
