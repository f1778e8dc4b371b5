// Package extract turns a parsed punctuality report into records.
//
// The report is a flat run of <section> elements. Year headings and month
// headings appear as separate sections, so the period of a table is whatever
// year and month headings were seen last in document order. Tables are then
// normalized row by row; malformed rows are dropped and reported to an
// Observer, never returned as errors.
package extract
