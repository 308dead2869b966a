package transcode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeSubtitle(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertSRTToPlaintext(t *testing.T) {
	srt := "1\n" +
		"00:00:01,000 --> 00:00:03,500\n" +
		"<i>Hello there</i>\n" +
		"\n" +
		"2\n" +
		"00:00:03,500 --> 00:00:06,000\n" +
		"General &amp; Admiral,\n" +
		"welcome aboard\n"
	path := writeSubtitle(t, "clip.en.srt", srt)

	out, err := ConvertToPlaintext(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("ConvertToPlaintext failed: %v", err)
	}

	if filepath.Ext(out) != PlaintextExt {
		t.Errorf("output path = %q, expected a %s file", out, PlaintextExt)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "Hello there General & Admiral, welcome aboard"
	if string(data) != want {
		t.Errorf("plaintext = %q, expected %q", data, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original subtitle file should be replaced")
	}
}

func TestConvertVTTToPlaintext(t *testing.T) {
	vtt := "WEBVTT\n" +
		"Kind: captions\n" +
		"Language: en\n" +
		"\n" +
		"00:00:01.000 --> 00:00:03.500 align:start position:0%\n" +
		"so<00:00:01.280><c> today</c><00:00:01.680><c> we're</c>\n" +
		"\n" +
		"00:00:03.500 --> 00:00:06.000\n" +
		"so today we're\n" +
		"looking at pipelines\n"
	path := writeSubtitle(t, "clip.en.vtt", vtt)

	out, err := ConvertToPlaintext(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// The rolled-up repeat of the first cue is deduplicated.
	want := "so today we're looking at pipelines"
	if string(data) != want {
		t.Errorf("plaintext = %q, expected %q", data, want)
	}
}

func TestConvertLeavesUnsupportedFormats(t *testing.T) {
	path := writeSubtitle(t, "clip.en.ass", "[Script Info]\nTitle: x\n")

	out, err := ConvertToPlaintext(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if out != path {
		t.Errorf("unsupported format should be returned untouched, got %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("unsupported file must not be removed")
	}
}

func TestExtractCueText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"markup and positioning tags",
			"1\n00:00:01,000 --> 00:00:02,000\n{\\an8}<b>Top line</b>\n",
			"Top line",
		},
		{
			"bidirectional control characters",
			"1\n00:00:01,000 --> 00:00:02,000\n‎right to left‏\n",
			"right to left",
		},
		{
			"numeric-only cue text is dropped with the counters",
			"1\n00:00:01,000 --> 00:00:02,000\n42\n",
			"",
		},
		{
			"whitespace collapses",
			"1\n00:00:01,000 --> 00:00:02,000\nspaced    out\ttext\n",
			"spaced out text",
		},
		{
			"carriage returns are tolerated",
			"1\r\n00:00:01,000 --> 00:00:02,000\r\nwindows line endings\r\n",
			"windows line endings",
		},
	}

	for _, test := range tests {
		if got := extractCueText(test.raw); got != test.want {
			t.Errorf("%s: extractCueText = %q, expected %q", test.name, got, test.want)
		}
	}
}
