package model

// CodecUnknown is reported for any stream or container the probe could not identify
const CodecUnknown = "unknown"

// MediaInfo describes one file's current encoding as reported by the transcoder probe
type MediaInfo struct {
	VideoCodec string
	AudioCodec string
	Container  string
}

// UnknownMedia returns a MediaInfo with every field set to CodecUnknown.
// It is the probe's degraded result on any failure.
func UnknownMedia() MediaInfo {
	return MediaInfo{
		VideoCodec: CodecUnknown,
		AudioCodec: CodecUnknown,
		Container:  CodecUnknown,
	}
}

// IsUnknown returns true if the probe failed to identify the file
func (m MediaInfo) IsUnknown() bool {
	return m.VideoCodec == CodecUnknown && m.AudioCodec == CodecUnknown
}

// DecisionOutcome is the finalization decision for one downloaded file
type DecisionOutcome int

const (
	// FinalizeAsIs means the file already satisfies the requested container and codec
	FinalizeAsIs DecisionOutcome = iota

	// Remux means the streams can be repackaged into the target container without re-encoding
	Remux

	// ReEncode means a full decode and encode is required
	ReEncode
)

// String returns a human readable outcome name
func (d DecisionOutcome) String() string {
	switch d {
	case FinalizeAsIs:
		return "finalize-as-is"
	case Remux:
		return "remux"
	case ReEncode:
		return "re-encode"
	default:
		return "unknown"
	}
}
