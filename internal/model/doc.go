package model

// Package model defines the value types shared across the pipeline:
// session status and snapshots, probe results, finalization outcomes,
// and the bounded session log buffer.
