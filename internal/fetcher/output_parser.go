package fetcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Line markers emitted by the fetcher
const (
	DestinationMarker = "Destination: "
	MergingMarker     = "Merging formats into \""
	DownloadTag       = "[download]"
	ErrorToken        = "ERROR"
	WarningToken      = "WARNING"
)

// statusTags prefix lines surfaced verbatim as status
var statusTags = []string{"[info]", "[youtube]", "[Merger]", "[ExtractAudio]", "[EmbedSubtitle]"}

// subtitleWriteMarkers identify lines announcing a written subtitle file
var subtitleWriteMarkers = []string{
	"Writing video subtitles to: ",
	"Writing subtitles to: ",
	"Writing auto subtitles to: ",
}

// mediaExtensions are the suffixes accepted by the bare-path heuristic
var mediaExtensions = []string{
	".mp4", ".mkv", ".webm", ".avi", ".mov", ".flv", ".ts",
	".m4a", ".mp3", ".opus", ".ogg", ".wav", ".flac",
	".srt", ".vtt",
}

// subtitleExtensions tag a discovered file as a subtitle artifact
var subtitleExtensions = []string{".srt", ".vtt"}

// progressRule pairs a pattern with the submatch index carrying the value.
// Rules are tried in order; the first match wins.
type progressRule struct {
	re    *regexp.Regexp
	group int
}

// Percent, speed, and ETA extraction rules, in priority order. New output
// shapes are handled by appending a rule, not by changing control flow.
var (
	percentRules = []progressRule{
		{regexp.MustCompile(`\s([0-9]{1,3}(?:\.[0-9]+)?)%\s+of\b`), 1},
		{regexp.MustCompile(`([0-9]{1,3}(?:\.[0-9]+)?)%`), 1},
	}
	speedRules = []progressRule{
		{regexp.MustCompile(`\bat\s+([0-9.]+\s?[KMGT]?i?B/s)`), 1},
		{regexp.MustCompile(`([0-9.]+[KMGT]i?B/s)`), 1},
		{regexp.MustCompile(`\bat\s+([^\s]+/s)`), 1},
	}
	etaRules = []progressRule{
		{regexp.MustCompile(`\bETA\s+([0-9]{1,2}:[0-9]{2}(?::[0-9]{2})?)`), 1},
		{regexp.MustCompile(`([0-9]{1,2}:[0-9]{2}(?::[0-9]{2})?)\s+ETA\b`), 1},
	}
)

// Severity marks status lines surfaced from fetcher diagnostics
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// Sink receives the structured events the parser extracts from the
// fetcher's output stream. Implementations must tolerate being called from
// the stream-reading goroutine.
type Sink interface {
	// FileDiscovered reports a new output artifact. subtitle marks
	// subtitle files, which bypass the decision engine at finalize time.
	FileDiscovered(path string, subtitle bool)

	// Progress reports a download fraction in [0,1]
	Progress(fraction float64)

	// Speed reports a human readable transfer speed
	Speed(speed string)

	// ETA reports a human readable time remaining
	ETA(eta string)

	// Status reports the current status line with its severity
	Status(line string, severity Severity)
}

// ParserOptions configure per-run parser behavior
type ParserOptions struct {
	Verbose      bool // log lines that match no progress rule
	SubtitleOnly bool // surface subtitle warnings prominently
	CaptureRaw   bool // retain verbatim output for the raw view
}

// Parser is a stateful line classifier for fetcher output. It is driven
// from the stream-reading goroutine, one line at a time, and is not safe
// for concurrent use.
type Parser struct {
	logger zerolog.Logger
	sink   Sink
	opts   ParserOptions

	seen map[string]struct{}
	raw  strings.Builder
}

// NewParser creates a parser delivering events to sink
func NewParser(sink Sink, opts ParserOptions, logger zerolog.Logger) *Parser {
	return &Parser{
		logger: logger.With().Str("component", "outparser").Logger(),
		sink:   sink,
		opts:   opts,
		seen:   make(map[string]struct{}),
	}
}

// ProcessLine classifies one line of fetcher output and emits the
// corresponding events. Empty lines are ignored.
func (p *Parser) ProcessLine(line string) {
	if p.opts.CaptureRaw {
		p.raw.WriteString(line)
		p.raw.WriteByte('\n')
	}

	l := strings.TrimSpace(line)
	if l == "" {
		return
	}

	if path, ok := extractDestination(l); ok {
		p.discover(path, hasSubtitleExt(path))
		return
	}
	if path, ok := extractSubtitleWrite(l); ok {
		p.discover(path, true)
		return
	}
	if path, ok := bareFilePath(l); ok {
		p.discover(path, hasSubtitleExt(path))
		return
	}

	if strings.HasPrefix(l, DownloadTag) {
		p.parseProgress(l)
		return
	}

	for _, tag := range statusTags {
		if strings.HasPrefix(l, tag) {
			p.sink.Status(l, SeverityInfo)
			return
		}
	}

	if strings.Contains(l, ErrorToken) {
		p.sink.Status(l, SeverityError)
		return
	}
	if strings.Contains(l, WarningToken) {
		if p.opts.SubtitleOnly && strings.Contains(strings.ToLower(l), "subtitle") {
			p.logger.Warn().Str("line", l).Msg("subtitle warning in subtitle-only mode")
		}
		p.sink.Status(l, SeverityWarning)
		return
	}

	p.sink.Status(l, SeverityInfo)
}

// RawOutput returns the verbatim captured output, empty unless enabled
func (p *Parser) RawOutput() string {
	return p.raw.String()
}

// discover reports a file once, deduplicated by exact path string
func (p *Parser) discover(path string, subtitle bool) {
	if _, dup := p.seen[path]; dup {
		return
	}
	p.seen[path] = struct{}{}
	p.logger.Info().Str("path", path).Bool("subtitle", subtitle).Msg("discovered output file")
	p.sink.FileDiscovered(path, subtitle)
}

// parseProgress extracts percent, speed, and ETA from a [download] line.
// Each rule list is tried in order; values that match overwrite the
// session fields, misses are logged only in verbose mode.
func (p *Parser) parseProgress(line string) {
	matched := false
	if v, ok := matchRules(percentRules, line); ok {
		if pct, err := strconv.ParseFloat(v, 64); err == nil && pct >= 0 && pct <= 100 {
			p.sink.Progress(pct / 100)
			matched = true
		}
	}
	if v, ok := matchRules(speedRules, line); ok {
		p.sink.Speed(strings.TrimSpace(v))
		matched = true
	}
	if v, ok := matchRules(etaRules, line); ok {
		p.sink.ETA(v)
		matched = true
	}
	if !matched {
		if p.opts.Verbose {
			p.logger.Debug().Str("line", line).Msg("download line matched no progress rule")
		}
		p.sink.Status(line, SeverityInfo)
	}
}

// matchRules tries each rule in order and returns the first captured value
func matchRules(rules []progressRule, line string) (string, bool) {
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(line); len(m) > r.group {
			return m[r.group], true
		}
	}
	return "", false
}

// extractDestination pulls the output path from destination and merge lines
func extractDestination(line string) (string, bool) {
	if idx := strings.Index(line, DestinationMarker); idx >= 0 {
		path := strings.TrimSpace(line[idx+len(DestinationMarker):])
		if path != "" {
			return path, true
		}
	}
	if idx := strings.Index(line, MergingMarker); idx >= 0 {
		rest := line[idx+len(MergingMarker):]
		if end := strings.Index(rest, "\""); end > 0 {
			return rest[:end], true
		}
	}
	return "", false
}

// extractSubtitleWrite pulls the path from subtitle-write announcements
func extractSubtitleWrite(line string) (string, bool) {
	for _, marker := range subtitleWriteMarkers {
		if idx := strings.Index(line, marker); idx >= 0 {
			path := strings.TrimSpace(line[idx+len(marker):])
			if path != "" {
				return path, true
			}
		}
	}
	return "", false
}

// bareFilePath is the heuristic for unbracketed lines that are just a
// path: a separator, a known media extension, and no status punctuation.
// The destination and subtitle markers above remain the primary detection
// path; this catches printed after_move paths.
func bareFilePath(line string) (string, bool) {
	if strings.HasPrefix(line, "[") {
		return "", false
	}
	if !strings.ContainsAny(line, "/\\") {
		return "", false
	}
	if strings.Contains(line, ": ") {
		return "", false
	}
	lower := strings.ToLower(line)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return line, true
		}
	}
	return "", false
}

// hasSubtitleExt reports whether path looks like a subtitle file
func hasSubtitleExt(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range subtitleExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
