// Package dataset parses OCD-ID identifier tables. A table is a comma
// separated file with a header row; the first column of every data row is an
// identifier such as "ocd-division/country:ar".
package dataset
