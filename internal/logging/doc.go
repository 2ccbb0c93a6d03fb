// Package logging provides a simple leveled logging interface for the
// corpus manager.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is set from configuration via SetLevel. Level tags are colored
// when writing to a terminal.
package logging
