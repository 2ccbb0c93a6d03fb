package filesystem

import "sync/atomic"

// Observer records filesystem operation metrics. The metrics package
// provides the implementation so filesystem does not import it.
type Observer interface {
	// ObserveOperation records duration and error status for an operation.
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

type observerHolder struct{ Observer }

var defaultObserver atomic.Pointer[observerHolder]

// SetObserver sets the package-level metrics observer. nil disables recording.
func SetObserver(o Observer) {
	if o == nil {
		defaultObserver.Store(nil)
		return
	}
	defaultObserver.Store(&observerHolder{o})
}

func observe() Observer {
	h := defaultObserver.Load()
	if h == nil {
		return nil
	}
	return h.Observer
}
