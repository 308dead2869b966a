package transcode

// Package transcode decides and performs per-file finalization: probing
// container/codec identity, choosing between finalize-as-is, remux, and
// re-encode, and running the transcoder with staged outputs, atomic swaps,
// and remux-to-re-encode fallback.
