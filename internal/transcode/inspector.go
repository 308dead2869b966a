package transcode

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/model"
)

// Probe and encoder-listing invocation constants
const (
	ProbeCommandName  = "ffprobe"
	ProbeLogLevel     = "quiet"
	ProbeShowEntries  = "stream=codec_name"
	ProbeOutputFormat = "csv=p=0"
)

// Inspector queries the transcoder for media identity and capabilities.
// Encoder listings are memoized per canonical transcoder path.
type Inspector struct {
	logger zerolog.Logger
	exec   commandRunner

	encodersMutex sync.Mutex
	encoders      map[string]map[string]bool
}

// NewInspector creates an inspector
func NewInspector(logger zerolog.Logger) *Inspector {
	return newInspector(execRunner{}, logger)
}

func newInspector(exec commandRunner, logger zerolog.Logger) *Inspector {
	return &Inspector{
		logger:   logger.With().Str("component", "inspector").Logger(),
		exec:     exec,
		encoders: make(map[string]map[string]bool),
	}
}

// Probe returns the container and codec identity of path using the probe
// tool that ships next to transcoderPath. It is best-effort: the first
// reported stream is taken as video, the second as audio, and any failure
// degrades to all-unknown rather than an error.
func (i *Inspector) Probe(ctx context.Context, transcoderPath, path string) model.MediaInfo {
	probe := probePathFor(transcoderPath)
	out, err := i.exec.Output(ctx, probe,
		"-v", ProbeLogLevel,
		"-show_entries", ProbeShowEntries,
		"-of", ProbeOutputFormat,
		path,
	)
	if err != nil {
		i.logger.Debug().Err(err).Str("path", path).Msg("probe failed")
		return model.UnknownMedia()
	}

	info := model.UnknownMedia()
	info.Container = containerOf(path)

	var codecs []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line != "" {
			codecs = append(codecs, line)
		}
	}
	if len(codecs) == 0 {
		return model.UnknownMedia()
	}
	info.VideoCodec = codecs[0]
	if len(codecs) > 1 {
		info.AudioCodec = codecs[1]
	}
	return info
}

// AvailableEncoders returns the set of encoder names the transcoder at
// transcoderPath supports. The listing runs once per distinct canonical
// path; failures yield an empty set.
func (i *Inspector) AvailableEncoders(ctx context.Context, transcoderPath string) map[string]bool {
	key := canonicalPath(transcoderPath)
	i.encodersMutex.Lock()
	defer i.encodersMutex.Unlock()
	if cached, ok := i.encoders[key]; ok {
		return cached
	}

	set := make(map[string]bool)
	out, err := i.exec.Output(ctx, transcoderPath, "-hide_banner", "-encoders")
	if err != nil {
		i.logger.Warn().Err(err).Str("transcoder", transcoderPath).Msg("encoder listing failed")
		i.encoders[key] = set
		return set
	}

	// Listing lines look like " V....D libx264   H.264 / AVC ...".
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		flags := fields[0]
		if len(flags) < 6 || (flags[0] != 'V' && flags[0] != 'A' && flags[0] != 'S') {
			continue
		}
		if fields[1] == "=" { // legend line
			continue
		}
		set[fields[1]] = true
	}
	i.encoders[key] = set
	return set
}

// probePathFor derives the probe binary location from the transcoder path
func probePathFor(transcoderPath string) string {
	if transcoderPath == "" {
		return ProbeCommandName
	}
	dir := filepath.Dir(transcoderPath)
	base := filepath.Base(transcoderPath)
	probe := strings.Replace(base, "ffmpeg", ProbeCommandName, 1)
	if probe == base {
		return ProbeCommandName
	}
	return filepath.Join(dir, probe)
}

// containerOf derives the container identity from the file extension
func containerOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return model.CodecUnknown
	}
	return ext
}

// canonicalPath resolves symlinks and relative segments for memoization keys
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
