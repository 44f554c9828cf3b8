// Package files provides file system discovery and management for the
// extraction archive.
//
// Discovery lists course folders and their .xlsx workbooks in name order and
// computes the archive version (newest workbook modification time). Manager
// writes reports and generated extractions atomically under the configured
// directories. Watcher reports workbook changes below the extraction root in
// debounced batches so the snapshot cache can be refreshed ahead of requests.
package files
