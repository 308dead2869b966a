package fetcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/platform"
	"github.com/ytget/mediaflow/internal/tempfiles"
)

// Fetcher output template
const (
	OutputTemplate = "%(title)s.%(ext)s"
)

// Format selectors
const (
	FormatSelectorBest   = "bv*+ba/b"
	FormatSelectorHeight = "bv*[height<=%d]+ba/b[height<=%d]"
	SubtitleLangsAll     = "all"
)

// Cookie temp file naming
const (
	CookieFilePrefix = "cookies"
	CookieFileExt    = ".txt"
)

// BuildResult is the argument vector plus the builder-local flags consumed
// by later pipeline stages.
type BuildResult struct {
	Args []string

	// RequiresPostProcessing is set when the requested container or codec
	// constrains the output, so downloaded files must go through the
	// finalization decision engine.
	RequiresPostProcessing bool

	// RequiresPlaintextSubs is set when the plaintext pseudo-format was
	// requested: srt is fetched and converted locally after download.
	RequiresPlaintextSubs bool

	// CookieFile is the temp cookie file passed via --cookies, if any.
	// The builder registers it with the cleanup registry.
	CookieFile string
}

// Builder translates a configuration snapshot into the fetcher's argument
// vector. Building never fails on bad optional values: invalid options are
// silently omitted and an invalid output directory falls back to the
// default downloads directory.
type Builder struct {
	logger         zerolog.Logger
	temps          *tempfiles.Registry
	transcoderPath string // resolved transcoder location, may be empty
}

// NewBuilder creates an argument builder. transcoderPath may be empty when
// the transcoder was not resolved; it is then simply not passed through.
func NewBuilder(temps *tempfiles.Registry, transcoderPath string, logger zerolog.Logger) *Builder {
	return &Builder{
		logger:         logger.With().Str("component", "argbuilder").Logger(),
		temps:          temps,
		transcoderPath: transcoderPath,
	}
}

// Build assembles the ordered argument vector for one run. urls must be a
// non-empty list of trimmed, non-empty URL strings.
func (b *Builder) Build(cfg config.Snapshot, urls []string) (BuildResult, error) {
	if len(urls) == 0 {
		return BuildResult{}, fmt.Errorf("no URLs to download")
	}
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			return BuildResult{}, fmt.Errorf("empty URL in download list")
		}
	}

	var res BuildResult

	outputDir, err := platform.ValidateOutputDir(cfg.OutputDir)
	if err != nil {
		// Safety fallback: bad output paths never abort a run. Download to
		// the default directory with no other options applied.
		fallbackDir, dirErr := platform.GetHomeDownloadsDir()
		if dirErr != nil {
			return BuildResult{}, fmt.Errorf("invalid output directory and no fallback: %w", dirErr)
		}
		b.logger.Warn().Err(err).Str("fallback", fallbackDir).Msg("invalid output directory, using default")
		res.Args = append(res.Args, "-o", filepath.Join(fallbackDir, OutputTemplate))
		b.appendTail(&res, urls)
		return res, nil
	}
	res.Args = append(res.Args, "-o", filepath.Join(outputDir, OutputTemplate))

	if b.transcoderPath != "" {
		res.Args = append(res.Args, "--ffmpeg-location", b.transcoderPath)
	} else {
		b.logger.Info().Msg("transcoder not resolved, fetcher will use its own")
	}

	if cfg.Verbose {
		res.Args = append(res.Args, "--verbose")
	}

	switch {
	case cfg.SubtitleOnly:
		res.Args = append(res.Args, "--skip-download")
	case cfg.AudioOnly:
		res.Args = append(res.Args, "--extract-audio")
		if cfg.AudioFormat != "" {
			res.Args = append(res.Args, "--audio-format", cfg.AudioFormat)
		}
		quality := cfg.AudioQuality
		if quality <= 0 {
			quality = config.DefaultAudioQuality
		}
		res.Args = append(res.Args, "--audio-quality", fmt.Sprintf("%dK", quality))
		if cfg.KeepVideo {
			res.Args = append(res.Args, "--keep-video")
		}
	default:
		res.Args = append(res.Args, "--format", formatSelector(cfg.QualityCap))
		if cfg.ConstrainsOutput() {
			res.RequiresPostProcessing = true
		}
	}

	b.appendSubtitleArgs(&res, cfg)
	b.appendSidecarArgs(&res, cfg)
	b.appendNetworkArgs(&res, cfg)
	b.appendAuthArgs(&res, cfg)
	b.appendTail(&res, urls)

	return res, nil
}

// appendSubtitleArgs adds subtitle download options
func (b *Builder) appendSubtitleArgs(res *BuildResult, cfg config.Snapshot) {
	if !cfg.DownloadSubtitles && !cfg.SubtitleOnly {
		return
	}
	res.Args = append(res.Args, "--write-subs")

	langs := strings.TrimSpace(cfg.SubtitleLangs)
	if langs == "" && cfg.AutoSubtitles {
		langs = SubtitleLangsAll
	}
	if langs != "" {
		res.Args = append(res.Args, "--sub-langs", langs)
	}

	subFormat := strings.ToLower(strings.TrimSpace(cfg.SubtitleFormat))
	if subFormat == config.SubtitleFormatTXT {
		// The fetcher has no plaintext format; request srt and convert locally.
		subFormat = config.SubtitleFormatSRT
		res.RequiresPlaintextSubs = true
	}
	if subFormat != "" {
		res.Args = append(res.Args, "--sub-format", subFormat)
	}

	if cfg.AutoSubtitles {
		res.Args = append(res.Args, "--write-auto-subs")
	}

	if cfg.EmbedSubtitles && !cfg.AudioOnly && !cfg.SubtitleOnly && !res.RequiresPostProcessing {
		res.Args = append(res.Args, "--embed-subs")
	}
}

// appendSidecarArgs adds thumbnail, metadata, and playlist options
func (b *Builder) appendSidecarArgs(res *BuildResult, cfg config.Snapshot) {
	if cfg.WriteThumbnail {
		res.Args = append(res.Args, "--write-thumbnail")
	}
	if cfg.EmbedThumbnail {
		res.Args = append(res.Args, "--embed-thumbnail")
	}
	if cfg.WriteDescription {
		res.Args = append(res.Args, "--write-description")
	}
	if cfg.WriteInfoJSON {
		res.Args = append(res.Args, "--write-info-json")
	}
	if cfg.NoPlaylist {
		res.Args = append(res.Args, "--no-playlist")
	}
	if config.ValidMaxDownloads(cfg.MaxDownloads) {
		res.Args = append(res.Args, "--max-downloads", fmt.Sprintf("%d", cfg.MaxDownloads))
	}
}

// appendNetworkArgs adds rate, retry, and proxy options after validation.
// Invalid values are omitted, not rejected.
func (b *Builder) appendNetworkArgs(res *BuildResult, cfg config.Snapshot) {
	if cfg.RateLimit != "" {
		if config.ValidRateLimit(cfg.RateLimit) {
			res.Args = append(res.Args, "--limit-rate", strings.TrimSpace(cfg.RateLimit))
		} else {
			b.logger.Debug().Str("value", cfg.RateLimit).Msg("dropping malformed rate limit")
		}
	}
	if config.ValidRetries(cfg.Retries) {
		res.Args = append(res.Args, "--retries", fmt.Sprintf("%d", cfg.Retries))
	}
	if strings.TrimSpace(cfg.UserAgent) != "" {
		res.Args = append(res.Args, "--user-agent", strings.TrimSpace(cfg.UserAgent))
	}
	if cfg.Proxy != "" {
		if config.ValidProxy(cfg.Proxy) {
			res.Args = append(res.Args, "--proxy", strings.TrimSpace(cfg.Proxy))
		} else {
			b.logger.Debug().Str("value", cfg.Proxy).Msg("dropping malformed proxy")
		}
	}
}

// appendAuthArgs adds cookie options. Browser cookies and a cookie file are
// mutually exclusive; the browser source wins.
func (b *Builder) appendAuthArgs(res *BuildResult, cfg config.Snapshot) {
	if cfg.CookiesFromBrowser && strings.TrimSpace(cfg.Browser) != "" {
		res.Args = append(res.Args, "--cookies-from-browser", strings.TrimSpace(cfg.Browser))
		return
	}
	if strings.TrimSpace(cfg.CookieText) == "" {
		return
	}
	path, err := b.temps.CreateFile(CookieFilePrefix, CookieFileExt, []byte(cfg.CookieText))
	if err != nil {
		// Auth degrades rather than failing the run.
		b.logger.Warn().Err(err).Msg("failed to write cookie file, continuing without cookies")
		return
	}
	res.CookieFile = path
	res.Args = append(res.Args, "--cookies", path)
}

// appendTail adds the always-present progress flags, the final-path print
// directive, and the URL list.
func (b *Builder) appendTail(res *BuildResult, urls []string) {
	res.Args = append(res.Args,
		"--newline",
		"--progress",
		"--print", "after_move:filepath",
	)
	res.Args = append(res.Args, urls...)
}

// formatSelector builds the fetcher format selector from a quality cap
func formatSelector(quality string) string {
	if h := config.HeightCap(quality); h > 0 {
		return fmt.Sprintf(FormatSelectorHeight, h, h)
	}
	return FormatSelectorBest
}
