package queue

import (
	"fmt"

	"clipforge/log"
)

// zapLogger routes Asynq's internal logging through the application logger.
type zapLogger struct{}

func newLogger() zapLogger { return zapLogger{} }

func (zapLogger) Debug(args ...interface{}) { log.GetLogger().Debug("[Asynq] " + fmt.Sprint(args...)) }
func (zapLogger) Info(args ...interface{})  { log.GetLogger().Info("[Asynq] " + fmt.Sprint(args...)) }
func (zapLogger) Warn(args ...interface{})  { log.GetLogger().Warn("[Asynq] " + fmt.Sprint(args...)) }
func (zapLogger) Error(args ...interface{}) { log.GetLogger().Error("[Asynq] " + fmt.Sprint(args...)) }
func (zapLogger) Fatal(args ...interface{}) { log.GetLogger().Fatal("[Asynq] " + fmt.Sprint(args...)) }
