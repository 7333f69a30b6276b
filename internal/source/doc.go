// Package source reads the input article table.
//
// Tables are CSV files with a header row. The identifier and content columns
// are required; source, date, and title are optional pass-through columns.
// Input may carry a UTF-8 byte order mark, as spreadsheet exports usually do.
package source
