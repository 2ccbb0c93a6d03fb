/*
Package filesystem wraps os.Stat, os.Open and os.ReadDir with retry logic
for stale file handle errors (ESTALE), which show up when the corpus lives on
an NFS or SMB mount that is remounted while a scan is running.

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

Only ESTALE is retried, with exponential backoff (50ms, 100ms, 200ms capped
at 500ms by default). Every other error is returned immediately.

Metrics are recorded through an Observer registered with SetObserver; with no
observer registered nothing is recorded.
*/
package filesystem
