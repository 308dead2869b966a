package config

// Format and codec wildcard values
const (
	// FormatBest means no container constraint
	FormatBest = "best"

	// CodecAuto means no codec constraint
	CodecAuto = "auto"

	// QualityBest means no resolution cap
	QualityBest = "best"
)

// Subtitle formats
const (
	SubtitleFormatSRT = "srt"
	SubtitleFormatVTT = "vtt"

	// SubtitleFormatTXT is a local pseudo-format: srt is requested from the
	// fetcher and converted to plaintext after download
	SubtitleFormatTXT = "txt"
)

// Defaults
const (
	DefaultAudioQuality = 192 // kbps
	DefaultRetries      = 10
)

// Snapshot describes one run's desired output. It is immutable for the
// duration of a run: the session copies it at start and never writes to it.
type Snapshot struct {
	// Output
	OutputDir  string // tilde-expanded and validated by the argument builder
	Format     string // target container, FormatBest = no constraint
	VideoCodec string // CodecAuto = no constraint
	AudioCodec string // CodecAuto = no constraint
	QualityCap string // QualityBest or a max height such as "1080"

	// Modes
	AudioOnly    bool
	AudioFormat  string // extraction format when AudioOnly (mp3, m4a, ...)
	AudioQuality int    // extraction bitrate in kbps, 0 = default
	KeepVideo    bool   // keep the source video after audio extraction
	SubtitleOnly bool   // skip media download, fetch subtitles only

	// Subtitles
	DownloadSubtitles bool
	AutoSubtitles     bool
	SubtitleLangs     string // comma separated language list
	SubtitleFormat    string // srt, vtt, or txt
	EmbedSubtitles    bool

	// Sidecars
	WriteThumbnail   bool
	EmbedThumbnail   bool
	WriteDescription bool
	WriteInfoJSON    bool

	// Playlist
	NoPlaylist   bool
	MaxDownloads int // 0 = unlimited

	// Network
	RateLimit string // e.g. "4.2M", "500K"
	Retries   int    // -1 = unset
	Proxy     string
	UserAgent string

	// Authentication: at most one of the two is passed to the fetcher
	CookieText         string // raw Netscape cookie text, written to a temp file
	CookiesFromBrowser bool
	Browser            string // browser id when CookiesFromBrowser is set

	// Behavior
	ForceConvert   bool // always re-encode even when codecs already match
	DeleteOriginal bool // delete the source file after a successful conversion
	Verbose        bool
	ShowRawOutput  bool

	// Tool overrides; empty means use the injected resolver
	FetcherPath    string
	TranscoderPath string
}

// ConstrainsOutput reports whether the snapshot requests a specific
// container or video codec, i.e. whether downloaded files may need
// post-processing.
func (s Snapshot) ConstrainsOutput() bool {
	return (s.Format != "" && s.Format != FormatBest) ||
		(s.VideoCodec != "" && s.VideoCodec != CodecAuto) ||
		s.ForceConvert
}

// TargetFormat returns the requested container, normalizing empty to FormatBest
func (s Snapshot) TargetFormat() string {
	if s.Format == "" {
		return FormatBest
	}
	return s.Format
}

// TargetVideoCodec returns the requested video codec, normalizing empty to CodecAuto
func (s Snapshot) TargetVideoCodec() string {
	if s.VideoCodec == "" {
		return CodecAuto
	}
	return s.VideoCodec
}

// TargetAudioCodec returns the requested audio codec, normalizing empty to CodecAuto
func (s Snapshot) TargetAudioCodec() string {
	if s.AudioCodec == "" {
		return CodecAuto
	}
	return s.AudioCodec
}
