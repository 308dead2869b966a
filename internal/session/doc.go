package session

// Package session implements the pipeline coordinator: it owns per-run
// state, runs the fetcher subprocess on a background goroutine, feeds its
// stream to the output parser, and sequentially finalizes every discovered
// file, publishing ordered state snapshots to a single observer.
