package fetcher

// Package fetcher covers this engine's contract with the external download
// tool: translating a configuration snapshot into its argument vector, and
// classifying its line-oriented output stream into structured events.
