// Package httputil downloads source images over HTTP.
//
// # Overview
//
// A [Downloader] performs a single GET per call. There is no retry and no
// response caching; a failed download fails the run.
//
//   - [Downloader.Fetch] returns the response body in memory
//   - [Downloader.Download] stores it in a directory, in a file named after
//     the URL path basename
//
// # Errors
//
// Failures are reported as structured errors from pkg/errors:
//
//   - Transport failures and non-2xx responses: errors.ErrCodeNetwork. For a
//     bad status the cause is an *errors.StatusError carrying the code.
//   - Deadline expiry (context or client timeout): errors.ErrCodeTimeout
//   - Bodies larger than [MaxBodyBytes]: errors.ErrCodeInvalidInput
//   - Malformed URLs: errors.ErrCodeInvalidURL
//
// Context cancellation is preserved in the error chain, so
// errors.Is(err, context.Canceled) still holds.
//
// # Configuration
//
//	d := httputil.NewDownloader(30*time.Second, logger)
//	path, err := d.Download(ctx, "https://example.com/cat.jpg", tmpDir)
//
// A zero timeout disables the client timeout; the context still applies.
// Requests carry a "watermarker/<version>" User-Agent.
package httputil
