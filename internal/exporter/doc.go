// Package exporter writes CSV exports of the archive.
//
// CSVWriter writes UTF-8 CSV files with a byte order mark so Excel opens them
// with the right encoding. Relative paths resolve into the reports directory.
//
// Two exports are provided:
//
//	snapshot.csv     every normalized row of the current snapshot
//	course_kpis.csv  the per-course KPIs of the statistics overview
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	path, err := w.ExportSnapshot(snap)
package exporter
