package daemon

import (
	"log/slog"

	"mirrorvault/internal/logging"
	"mirrorvault/internal/status"
)

// logPresenter is the daemon's presentation layer. Without a window it
// records visibility intent and pair transitions in the daemon log, where
// `mirrorvault logs` and the status surfaces pick them up.
type logPresenter struct {
	logger *slog.Logger
}

func newLogPresenter(logger *slog.Logger) *logPresenter {
	return &logPresenter{logger: logging.NewComponentLogger(logger, "presenter")}
}

func (p *logPresenter) WindowVisibilityChanged(visible bool) {
	p.logger.Info("status window visibility changed",
		logging.String(logging.FieldEventType, "window_visibility"),
		logging.Bool("visible", visible),
	)
}

func (p *logPresenter) StatusChanged(st status.PairStatus) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "pair_status"),
		logging.String(logging.FieldPairID, st.PairID),
		logging.String("state", st.State.String()),
	}
	if !st.State.Final() {
		p.logger.Debug("pair status changed", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.Int("execution_count", st.ExecutionCount),
		logging.Int("success_rate", st.SuccessRate()),
		logging.Int64("files_copied", st.FilesCopiedLast),
		logging.Int64("bytes_transferred", st.BytesTransferredLast),
	)
	if st.Message != "" {
		attrs = append(attrs, logging.String("message", st.Message))
	}
	p.logger.Info("pair status changed", logging.Args(attrs...)...)
}
