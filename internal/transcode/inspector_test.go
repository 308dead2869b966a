package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/model"
)

func TestProbeParsesStreamCodecs(t *testing.T) {
	fake := &fakeExec{output: []byte("vp9\nopus\n")}
	i := newInspector(fake, zerolog.Nop())

	info := i.Probe(context.Background(), "/usr/bin/ffmpeg", "/tmp/clip.webm")
	want := model.MediaInfo{VideoCodec: "vp9", AudioCodec: "opus", Container: "webm"}
	if info != want {
		t.Errorf("info = %+v, expected %+v", info, want)
	}
}

func TestProbeVideoOnlyStream(t *testing.T) {
	fake := &fakeExec{output: []byte("h264\n")}
	i := newInspector(fake, zerolog.Nop())

	info := i.Probe(context.Background(), "/usr/bin/ffmpeg", "/tmp/clip.mp4")
	if info.VideoCodec != "h264" || info.AudioCodec != model.CodecUnknown {
		t.Errorf("info = %+v", info)
	}
}

func TestProbeCSVTrailingCommas(t *testing.T) {
	// Some probe builds emit trailing commas in csv mode.
	fake := &fakeExec{output: []byte("h264,\naac,\n")}
	i := newInspector(fake, zerolog.Nop())

	info := i.Probe(context.Background(), "/usr/bin/ffmpeg", "/tmp/clip.mp4")
	if info.VideoCodec != "h264" || info.AudioCodec != "aac" {
		t.Errorf("info = %+v", info)
	}
}

func TestProbeFailureDegradesToUnknown(t *testing.T) {
	fake := &fakeExec{outputErr: errors.New("exec: not found")}
	i := newInspector(fake, zerolog.Nop())

	info := i.Probe(context.Background(), "/usr/bin/ffmpeg", "/tmp/clip.webm")
	if !info.IsUnknown() {
		t.Errorf("expected all-unknown media info, got %+v", info)
	}

	fake = &fakeExec{output: []byte("\n\n")}
	i = newInspector(fake, zerolog.Nop())
	if info := i.Probe(context.Background(), "/usr/bin/ffmpeg", "/tmp/clip.webm"); !info.IsUnknown() {
		t.Errorf("empty probe output should degrade to unknown, got %+v", info)
	}
}

func TestProbePathDerivation(t *testing.T) {
	tests := []struct {
		transcoder string
		expected   string
	}{
		{"/usr/bin/ffmpeg", "/usr/bin/ffprobe"},
		{"/opt/tools/ffmpeg-6.1", "/opt/tools/ffprobe-6.1"},
		{"", "ffprobe"},
		{"/usr/bin/avconv", "ffprobe"}, // no ffmpeg in the name, fall back to PATH
	}

	for _, test := range tests {
		if got := probePathFor(test.transcoder); got != test.expected {
			t.Errorf("probePathFor(%q) = %q, expected %q", test.transcoder, got, test.expected)
		}
	}
}

func TestAvailableEncodersParsing(t *testing.T) {
	listing := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 V....D libsvtav1            SVT-AV1 (codec av1)
 A....D aac                  AAC (Advanced Audio Coding)
 S..... mov_text             3GPP Timed Text subtitle
 not-an-encoder-line
`
	fake := &fakeExec{output: []byte(listing)}
	i := newInspector(fake, zerolog.Nop())

	set := i.AvailableEncoders(context.Background(), "/usr/bin/ffmpeg")
	for _, name := range []string{"libx264", "libsvtav1", "aac", "mov_text"} {
		if !set[name] {
			t.Errorf("encoder %s missing from set", name)
		}
	}
	if set["Video"] || set["="] {
		t.Error("legend lines leaked into the encoder set")
	}
}

func TestAvailableEncodersMemoized(t *testing.T) {
	fake := &fakeExec{output: []byte(" V....D libx264 desc\n")}
	i := newInspector(fake, zerolog.Nop())

	i.AvailableEncoders(context.Background(), "/usr/bin/ffmpeg")
	i.AvailableEncoders(context.Background(), "/usr/bin/ffmpeg")

	if fake.outputCalls != 1 {
		t.Errorf("%d listing invocations, expected the second call to hit the cache", fake.outputCalls)
	}
}

func TestAvailableEncodersFailureCachesEmptySet(t *testing.T) {
	fake := &fakeExec{outputErr: errors.New("exec: not found")}
	i := newInspector(fake, zerolog.Nop())

	if set := i.AvailableEncoders(context.Background(), "/usr/bin/ffmpeg"); len(set) != 0 {
		t.Errorf("expected empty set on failure, got %v", set)
	}
	i.AvailableEncoders(context.Background(), "/usr/bin/ffmpeg")
	if fake.outputCalls != 1 {
		t.Error("failed listing should also be memoized")
	}
}
