// Package sanitizer normalizes user input before validation and storage.
//
// Every function is idempotent and never fails: invalid input comes back as
// an empty string rather than an error, and validation decides what to do
// with it.
package sanitizer
