package transcode

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/model"
)

// stubProber returns a fixed probe result for any path
type stubProber struct {
	info model.MediaInfo
}

func (s stubProber) Probe(ctx context.Context, transcoderPath, path string) model.MediaInfo {
	return s.info
}

func newTestEngine(info model.MediaInfo) *Engine {
	return &Engine{
		logger: zerolog.Nop(),
		prober: stubProber{info: info},
	}
}

func TestCanonicalVideoCodec(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"h264", CodecH264},
		{"avc1.640028", CodecH264},
		{"AVC", CodecH264},
		{"hevc", CodecH265},
		{"hev1.1.6.L93.B0", CodecH265},
		{"h265", CodecH265},
		{"vp9", CodecVP9},
		{"vp09.00.10.08", CodecVP9},
		{"vp8", CodecVP8},
		{"av01.0.04M.08", CodecAV1},
		{"av1", CodecAV1},
		{"mpeg4", CodecMPEG4},
		{"  H264  ", CodecH264},
		{"theora", "theora"},
	}

	for _, test := range tests {
		if got := CanonicalVideoCodec(test.name); got != test.expected {
			t.Errorf("CanonicalVideoCodec(%q) = %q, expected %q", test.name, got, test.expected)
		}
	}
}

func TestRemuxCompatible(t *testing.T) {
	tests := []struct {
		container string
		video     string
		audio     string
		expected  bool
	}{
		{"mp4", "h264", "aac", true},
		{"mp4", "hevc", "ac3", true},
		{"mp4", "vp9", "aac", false},
		{"mp4", "h264", "opus", false},
		{"mkv", "vp9", "opus", true},
		{"mkv", "h264", "flac", true},
		{"mkv", "theora", "aac", false},
		{"webm", "vp9", "opus", true},
		{"webm", "av01.0.04M.08", "vorbis", true},
		{"webm", "h264", "opus", false},
		{"webm", "vp9", "aac", false},
		{"avi", "mpeg4", "mp3", true},
		{"avi", "vp9", "mp3", false},
		{"ogg", "vp9", "opus", false}, // unknown container
		{"MP4", "AVC1.640028", "AAC", true},
		{"mp4", "libx264", "libmp3lame", false}, // lib prefix strips, but x264 is not h264
		{"mkv", "vp9", "libopus", true},
	}

	for _, test := range tests {
		got := RemuxCompatible(test.container, test.video, test.audio)
		if got != test.expected {
			t.Errorf("RemuxCompatible(%q, %q, %q) = %v, expected %v",
				test.container, test.video, test.audio, got, test.expected)
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		info    model.MediaInfo
		cfg     config.Snapshot
		outcome model.DecisionOutcome
	}{
		{
			name:    "already matching passes through",
			info:    model.MediaInfo{VideoCodec: "h264", AudioCodec: "aac", Container: "mp4"},
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: "h264"},
			outcome: model.FinalizeAsIs,
		},
		{
			name:    "unconstrained codec with matching container",
			info:    model.MediaInfo{VideoCodec: "vp9", AudioCodec: "opus", Container: "webm"},
			cfg:     config.Snapshot{Format: "webm", VideoCodec: config.CodecAuto},
			outcome: model.FinalizeAsIs,
		},
		{
			name:    "compatible codec in wrong container remuxes",
			info:    model.MediaInfo{VideoCodec: "h264", AudioCodec: "aac", Container: "webm"},
			cfg:     config.Snapshot{Format: "mkv", VideoCodec: config.CodecAuto},
			outcome: model.Remux,
		},
		{
			name:    "avc probe name remuxes into mp4",
			info:    model.MediaInfo{VideoCodec: "avc1.640028", AudioCodec: "aac", Container: "mkv"},
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: "h264"},
			outcome: model.Remux,
		},
		{
			name:    "requested h264 against hevc source re-encodes",
			info:    model.MediaInfo{VideoCodec: "h265", AudioCodec: "aac", Container: "webm"},
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: "h264"},
			outcome: model.ReEncode,
		},
		{
			name:    "remux-incompatible audio re-encodes",
			info:    model.MediaInfo{VideoCodec: "h264", AudioCodec: "opus", Container: "webm"},
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: config.CodecAuto},
			outcome: model.ReEncode,
		},
		{
			name:    "codec mismatch always re-encodes",
			info:    model.MediaInfo{VideoCodec: "vp9", AudioCodec: "opus", Container: "webm"},
			cfg:     config.Snapshot{Format: "webm", VideoCodec: "h264"},
			outcome: model.ReEncode,
		},
		{
			name:    "force convert overrides a perfect match",
			info:    model.MediaInfo{VideoCodec: "h264", AudioCodec: "aac", Container: "mp4"},
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: "h264", ForceConvert: true},
			outcome: model.ReEncode,
		},
		{
			name:    "unknown probe result re-encodes",
			info:    model.UnknownMedia(),
			cfg:     config.Snapshot{Format: "mp4", VideoCodec: "h264"},
			outcome: model.ReEncode,
		},
		{
			name:    "unknown probe with unconstrained target passes through",
			info:    model.UnknownMedia(),
			cfg:     config.Snapshot{Format: config.FormatBest, VideoCodec: config.CodecAuto},
			outcome: model.FinalizeAsIs,
		},
		{
			name:    "best container with requested codec mismatch",
			info:    model.MediaInfo{VideoCodec: "vp9", AudioCodec: "opus", Container: "webm"},
			cfg:     config.Snapshot{Format: config.FormatBest, VideoCodec: "av1"},
			outcome: model.ReEncode,
		},
	}

	for _, test := range tests {
		e := newTestEngine(test.info)
		outcome, info := e.Decide(context.Background(), "/tmp/in.webm", test.cfg)
		if outcome != test.outcome {
			t.Errorf("%s: outcome = %v, expected %v", test.name, outcome, test.outcome)
		}
		if info != test.info {
			t.Errorf("%s: probe info not returned verbatim", test.name)
		}
	}
}
