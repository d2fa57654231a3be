// Package errorsink appends failure records to the error_log table.
package errorsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/writer"
)

// Sink implements collector.ErrorSink. LogError never fails; when the store
// refuses the record it is dropped and counted.
type Sink struct {
	writer *writer.Writer
	table  collector.Table
	clock  collector.Clock
	logger *zap.Logger
}

// New builds a Sink writing through store.
func New(store collector.TableStore, clock collector.Clock, logger *zap.Logger) *Sink {
	if clock == nil {
		clock = system.Clock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	table, _ := collector.LookupTable(collector.TableErrorLog)
	return &Sink{
		writer: writer.New(store, logger),
		table:  table,
		clock:  clock,
		logger: logger.Named("errorsink"),
	}
}

// LogError appends one record.
func (s *Sink) LogError(ctx context.Context, source string, message string) {
	rec := collector.ErrorRecord{Timestamp: s.clock.Now(), Source: source, Message: message}
	if err := s.writer.Append(ctx, s.table, []collector.Row{rec.Row()}); err != nil {
		metrics.ObserveErrorSinkFailure()
		s.logger.Debug("error record dropped",
			zap.String("source", source),
			zap.String("message", message),
			zap.Error(err),
		)
		return
	}
	metrics.ObserveErrorLogged(source)
}
