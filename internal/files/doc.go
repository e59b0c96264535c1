// Package files discovers sensor exports on disk.
//
// Discovery lists the .xlsx, .xlsm and .csv exports of a directory, skipping
// office lock files, and orders them by the YYYY_MM_DD stamp in their names
// so batch summaries come out chronologically.
//
//	discovery := files.NewDiscovery(baseDir)
//	exports, err := discovery.FindExports("incoming")
//	exports = files.FilterFilesByDateRange(exports, from, to)
package files
