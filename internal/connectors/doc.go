// Package connectors provides the file system integrations that feed the
// core. The filesystem connector watches the data directory and reports new
// or modified dataset files as domain.WatchEvent values.
package connectors
