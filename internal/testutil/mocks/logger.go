package mocks

import "github.com/gobill/billing-service/internal/domain/ports"

// NopLogger discards all log output.
type NopLogger struct{}

var _ ports.Logger = NopLogger{}

func (NopLogger) Debug(msg string, fields ...ports.Field) {}
func (NopLogger) Info(msg string, fields ...ports.Field)  {}
func (NopLogger) Warn(msg string, fields ...ports.Field)  {}
func (NopLogger) Error(msg string, fields ...ports.Field) {}
