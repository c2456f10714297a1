// Package report renders backtest results as artifacts: PNG curves and
// heatmaps (gonum/plot), interactive HTML (go-echarts), CSV tables and an
// XLSX workbook. Every writer targets an fsutil.FileSystem so tests can
// run against memory.
package report
