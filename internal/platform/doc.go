package platform

// Package platform contains OS and filesystem glue: the default downloads
// directory, output-path validation, staged-output naming, and the atomic
// file replacement used when finalizing transcode results.
