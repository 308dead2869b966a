package transcode

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/model"
)

// Canonical codec tokens
const (
	CodecH264  = "h264"
	CodecH265  = "h265"
	CodecVP8   = "vp8"
	CodecVP9   = "vp9"
	CodecAV1   = "av1"
	CodecMPEG4 = "mpeg4"
)

// remuxCompat lists, per target container, the codecs that can be
// repackaged without re-encoding. Both the video and the audio codec must
// be present for the target to qualify.
var remuxCompat = map[string]struct {
	video []string
	audio []string
}{
	"mp4":  {video: []string{CodecH264, CodecH265, CodecMPEG4, CodecAV1}, audio: []string{"aac", "mp3", "ac3"}},
	"mkv":  {video: []string{CodecH264, CodecH265, CodecVP8, CodecVP9, CodecAV1, CodecMPEG4}, audio: []string{"aac", "mp3", "ac3", "dts", "flac", "vorbis", "opus"}},
	"webm": {video: []string{CodecVP8, CodecVP9, CodecAV1}, audio: []string{"vorbis", "opus"}},
	"avi":  {video: []string{CodecH264, CodecMPEG4, "mjpeg"}, audio: []string{"mp3", "ac3", "pcm"}},
}

// prober is the slice of the Inspector the engine needs
type prober interface {
	Probe(ctx context.Context, transcoderPath, path string) model.MediaInfo
}

// Engine decides how each downloaded file is finalized: unchanged, remuxed
// into the target container, or fully re-encoded.
type Engine struct {
	logger         zerolog.Logger
	prober         prober
	transcoderPath string
}

// NewEngine creates a decision engine bound to one transcoder
func NewEngine(inspector *Inspector, transcoderPath string, logger zerolog.Logger) *Engine {
	return &Engine{
		logger:         logger.With().Str("component", "decision").Logger(),
		prober:         inspector,
		transcoderPath: transcoderPath,
	}
}

// Decide probes inputPath and applies the compatibility rules. An unknown
// probe result fails the match checks and therefore biases toward ReEncode.
func (e *Engine) Decide(ctx context.Context, inputPath string, cfg config.Snapshot) (model.DecisionOutcome, model.MediaInfo) {
	info := e.prober.Probe(ctx, e.transcoderPath, inputPath)

	actualVideo := CanonicalVideoCodec(info.VideoCodec)
	requested := requestedVideoCodec(cfg.TargetVideoCodec())
	codecMatches := requested == "" || actualVideo == requested

	targetFormat := strings.ToLower(cfg.TargetFormat())
	containerMatches := targetFormat == config.FormatBest ||
		strings.EqualFold(info.Container, targetFormat)

	outcome := model.ReEncode
	switch {
	case codecMatches && containerMatches && !cfg.ForceConvert:
		outcome = model.FinalizeAsIs
	case codecMatches && targetFormat != config.FormatBest && !cfg.ForceConvert &&
		RemuxCompatible(targetFormat, info.VideoCodec, info.AudioCodec):
		outcome = model.Remux
	}

	e.logger.Info().
		Str("input", inputPath).
		Str("video", info.VideoCodec).
		Str("audio", info.AudioCodec).
		Str("container", info.Container).
		Str("outcome", outcome.String()).
		Msg("finalization decision")
	return outcome, info
}

// CanonicalVideoCodec maps the many names probes report onto the canonical
// tokens the compatibility table uses. Unrecognized names pass through
// lowercased.
func CanonicalVideoCodec(name string) string {
	c := strings.ToLower(strings.TrimSpace(name))
	switch {
	case c == CodecH264 || strings.HasPrefix(c, "avc"):
		return CodecH264
	case c == CodecH265 || c == "hevc" || strings.HasPrefix(c, "hev"):
		return CodecH265
	case c == CodecVP9 || strings.HasPrefix(c, "vp09"):
		return CodecVP9
	case c == CodecAV1 || strings.HasPrefix(c, "av01"):
		return CodecAV1
	case strings.HasPrefix(c, CodecVP8):
		return CodecVP8
	default:
		return c
	}
}

// requestedVideoCodec resolves the configured codec to a canonical token,
// empty meaning unconstrained.
func requestedVideoCodec(requested string) string {
	c := strings.ToLower(strings.TrimSpace(requested))
	if c == "" || c == config.CodecAuto {
		return ""
	}
	return CanonicalVideoCodec(c)
}

// RemuxCompatible reports whether both probed codecs fit the target
// container's allowed sets. Membership ignores case and a "lib" prefix on
// encoder-style names.
func RemuxCompatible(targetContainer, videoCodec, audioCodec string) bool {
	compat, ok := remuxCompat[strings.ToLower(targetContainer)]
	if !ok {
		return false
	}
	return codecInSet(CanonicalVideoCodec(videoCodec), compat.video) &&
		codecInSet(audioCodec, compat.audio)
}

// codecInSet checks set membership after normalization
func codecInSet(codec string, set []string) bool {
	c := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(codec)), "lib")
	for _, member := range set {
		if c == member {
			return true
		}
	}
	return false
}
