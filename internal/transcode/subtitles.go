package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
)

// Plaintext conversion constants
const (
	PlaintextExt = ".txt"
	VTTHeader    = "WEBVTT"
)

var (
	// cueIndexPattern matches srt cue counters
	cueIndexPattern = regexp.MustCompile(`^[0-9]+$`)

	// timingPattern matches srt/vtt cue timing lines
	timingPattern = regexp.MustCompile(`-->`)

	// markupTagPattern strips inline tags such as <i>, </c.colorE5E5E5>, {\an8}
	markupTagPattern = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)

	// vttMetaPrefixes start vtt header/metadata blocks
	vttMetaPrefixes = []string{VTTHeader, "Kind:", "Language:", "NOTE", "STYLE", "REGION"}
)

// htmlEntities is the fixed entity set decoded during conversion
var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": "\"",
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// bidiControls are stripped from cue text
var bidiControls = []string{
	"‎", "‏",
	"‪", "‫", "‬", "‭", "‮",
	"⁦", "⁧", "⁨", "⁩",
}

// ConvertToPlaintext rewrites an srt or vtt subtitle file as plain text:
// timing, header, and cue-index lines are dropped, inline markup and the
// fixed entity set are decoded away, and whitespace collapses to single
// spaces between fragments. The plaintext file replaces the subtitle file
// and its path is returned. Unsupported formats are left untouched.
func ConvertToPlaintext(path string, logger zerolog.Logger) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext != config.SubtitleFormatSRT && ext != config.SubtitleFormatVTT {
		logger.Info().Str("path", path).Str("format", ext).Msg("subtitle format not convertible, leaving as-is")
		return path, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read subtitle file: %w", err)
	}

	text := extractCueText(string(data))

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + PlaintextExt
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write plaintext subtitles: %w", err)
	}
	if outPath != path {
		if err := os.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to remove converted subtitle file")
		}
	}
	return outPath, nil
}

// extractCueText filters subtitle lines down to the spoken text
func extractCueText(raw string) string {
	var fragments []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		if cueIndexPattern.MatchString(line) || timingPattern.MatchString(line) {
			continue
		}
		if isVTTMeta(line) {
			continue
		}
		cleaned := cleanCueLine(line)
		if cleaned == "" {
			continue
		}
		// Auto-generated captions repeat the previous cue line.
		if n := len(fragments); n > 0 && fragments[n-1] == cleaned {
			continue
		}
		fragments = append(fragments, cleaned)
	}
	return strings.Join(fragments, " ")
}

// cleanCueLine strips markup, entities, bidi controls, and extra spaces
func cleanCueLine(line string) string {
	s := markupTagPattern.ReplaceAllString(line, "")
	for entity, repl := range htmlEntities {
		s = strings.ReplaceAll(s, entity, repl)
	}
	for _, ctrl := range bidiControls {
		s = strings.ReplaceAll(s, ctrl, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

// isVTTMeta reports vtt header and metadata lines
func isVTTMeta(line string) bool {
	for _, prefix := range vttMetaPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
