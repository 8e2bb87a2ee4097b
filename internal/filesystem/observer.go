package filesystem

// Observer records filesystem operation metrics. The implementation lives in
// the metrics package, which imports this one.
type Observer interface {
	// ObserveOperation records duration and error status for an operation
	// ("stat", "open", "readdir") on a volume ("uploads", "thumbnails").
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveStaleError(retryOp, volume string)
}

// defaultObserver is set once at startup; nil skips recording (tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
