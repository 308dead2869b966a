package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/model"
	"github.com/ytget/mediaflow/internal/platform"
	"github.com/ytget/mediaflow/internal/tempfiles"
)

// Transcoder invocation constants
const (
	// TempStagingSuffix is the stem suffix the fetcher leaves on files
	// still awaiting post-processing; finalization strips it.
	TempStagingSuffix = "_temp"

	AudioBitrate  = "128k"
	SvtAv1Preset  = "6"
	MP4SubCodec   = "mov_text"
	SvtAv1Encoder = "libsvtav1"
	AomAv1Encoder = "libaom-av1"

	DescriptionSidecarExt = ".description"
)

// ErrTranscodeFailed reports a transcoder sub-invocation that exited
// non-zero after all applicable fallbacks.
var ErrTranscodeFailed = errors.New("transcoder exited with failure")

// FinalizeRequest describes one file handed to the runner
type FinalizeRequest struct {
	InputPath string
	Outcome   model.DecisionOutcome

	// Subtitle marks subtitle artifacts, which are never transcoded
	Subtitle bool

	// PlaintextSubs requests srt/vtt to plaintext conversion after the
	// finalize-as-is rename
	PlaintextSubs bool
}

// Runner executes remux and re-encode sub-invocations with staged temp
// outputs, atomic swaps into the final path, and remux-to-re-encode
// fallback. At most one transcoder subprocess runs at a time; the session
// coordinator drives files strictly sequentially.
type Runner struct {
	logger         zerolog.Logger
	exec           commandRunner
	inspector      *Inspector
	temps          *tempfiles.Registry
	transcoderPath string
	logSink        func(string) // transcoder output lines, may be nil
}

// NewRunner creates a runner bound to one transcoder binary
func NewRunner(inspector *Inspector, temps *tempfiles.Registry, transcoderPath string, logSink func(string), logger zerolog.Logger) *Runner {
	return newRunner(execRunner{}, inspector, temps, transcoderPath, logSink, logger)
}

func newRunner(exec commandRunner, inspector *Inspector, temps *tempfiles.Registry, transcoderPath string, logSink func(string), logger zerolog.Logger) *Runner {
	return &Runner{
		logger:         logger.With().Str("component", "transcode").Logger(),
		exec:           exec,
		inspector:      inspector,
		temps:          temps,
		transcoderPath: transcoderPath,
		logSink:        logSink,
	}
}

// Finalize drives one file to its final path according to the decision
// outcome and returns that path.
func (r *Runner) Finalize(ctx context.Context, req FinalizeRequest, cfg config.Snapshot) (string, error) {
	if req.Outcome == model.FinalizeAsIs || req.Subtitle {
		return r.finalizeAsIs(req, cfg)
	}
	return r.convert(ctx, req.InputPath, req.Outcome, cfg)
}

// finalizeAsIs renames the input to its canonical final name, carries
// matching-stem sidecars along, removes an empty description sidecar, and
// optionally converts subtitle files to plaintext.
func (r *Runner) finalizeAsIs(req FinalizeRequest, cfg config.Snapshot) (string, error) {
	finalPath := canonicalFinalPath(req.InputPath, cfg, req.Subtitle)

	if finalPath != req.InputPath {
		if err := os.Rename(req.InputPath, finalPath); err != nil {
			return "", fmt.Errorf("failed to finalize %s: %w", req.InputPath, err)
		}
		r.renameSiblings(stemOf(req.InputPath), stemOf(finalPath), "")
	}
	r.removeEmptyDescription(stemOf(finalPath))

	if req.PlaintextSubs {
		if req.Subtitle {
			converted, err := ConvertToPlaintext(finalPath, r.logger)
			if err != nil {
				// Conversion failures leave the original in place and are
				// non-fatal to the session.
				r.logger.Warn().Err(err).Str("path", finalPath).Msg("plaintext conversion failed")
				return finalPath, nil
			}
			return converted, nil
		}
		r.convertSubtitleSidecars(stemOf(finalPath))
	}
	return finalPath, nil
}

// convert runs a remux or re-encode into a staged sibling of the final
// path and atomically swaps it in on success. A failed remux falls back to
// a re-encode with the same input and target; a failed re-encode is
// terminal for the file.
func (r *Runner) convert(ctx context.Context, inputPath string, outcome model.DecisionOutcome, cfg config.Snapshot) (string, error) {
	finalPath := canonicalFinalPath(inputPath, cfg, false)
	staged := platform.StagedPath(finalPath)
	r.temps.Register(staged)

	var args []string
	if outcome == model.Remux {
		args = r.remuxArgs(inputPath, staged, cfg)
	} else {
		args = r.reencodeArgs(ctx, inputPath, staged, cfg)
	}

	r.logger.Info().Str("input", inputPath).Str("outcome", outcome.String()).Str("output", finalPath).Msg("starting conversion")
	code, err := r.exec.Run(ctx, r.transcoderPath, args, r.logLine)
	if err != nil || code != 0 {
		r.temps.Remove(staged)
		if outcome == model.Remux {
			r.logger.Warn().Err(err).Int("exit", code).Str("input", inputPath).Msg("remux failed, falling back to re-encode")
			return r.convert(ctx, inputPath, model.ReEncode, cfg)
		}
		if err != nil {
			return "", fmt.Errorf("failed to run transcoder on %s: %w", inputPath, err)
		}
		return "", fmt.Errorf("%w: exit code %d for %s", ErrTranscodeFailed, code, inputPath)
	}

	if err := platform.ReplaceFile(staged, finalPath); err != nil {
		r.temps.Remove(staged)
		return "", fmt.Errorf("failed to finalize converted file: %w", err)
	}
	r.temps.Forget(staged)
	r.renameSiblings(stemOf(inputPath), stemOf(finalPath), inputPath)
	r.removeEmptyDescription(stemOf(finalPath))

	if cfg.DeleteOriginal && inputPath != finalPath {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", inputPath).Msg("failed to delete original")
		}
	}
	return finalPath, nil
}

// remuxArgs builds the codec-copy invocation for the target container
func (r *Runner) remuxArgs(input, output string, cfg config.Snapshot) []string {
	subCodec := "copy"
	if strings.EqualFold(cfg.TargetFormat(), "mp4") {
		subCodec = MP4SubCodec
	}
	return []string{
		"-i", input,
		"-c", "copy",
		"-c:s", subCodec,
		"-map", "0",
		"-avoid_negative_ts", "make_zero",
		"-y", output,
	}
}

// reencodeArgs builds the full re-encode invocation
func (r *Runner) reencodeArgs(ctx context.Context, input, output string, cfg config.Snapshot) []string {
	args := []string{"-i", input}
	args = append(args, r.videoEncoderArgs(ctx, cfg)...)
	args = append(args, audioEncoderArgs(cfg)...)
	args = append(args, "-progress", "pipe:1", "-y", output)
	return args
}

// videoEncoderArgs selects the video encoder for the requested codec and
// container, consulting the transcoder's available encoders for AV1.
func (r *Runner) videoEncoderArgs(ctx context.Context, cfg config.Snapshot) []string {
	requested := requestedVideoCodec(cfg.TargetVideoCodec())
	format := strings.ToLower(cfg.TargetFormat())

	if requested == "" {
		switch format {
		case "webm":
			return []string{"-c:v", "libvpx-vp9"}
		default:
			return []string{"-c:v", "libx264"}
		}
	}

	switch requested {
	case CodecH264:
		return []string{"-c:v", "libx264"}
	case CodecH265:
		return []string{"-c:v", "libx265"}
	case CodecVP9:
		return []string{"-c:v", "libvpx-vp9"}
	case CodecVP8:
		return []string{"-c:v", "libvpx"}
	case CodecAV1:
		encoders := r.inspector.AvailableEncoders(ctx, r.transcoderPath)
		if encoders[SvtAv1Encoder] {
			return []string{"-c:v", SvtAv1Encoder, "-preset", SvtAv1Preset}
		}
		return []string{"-c:v", AomAv1Encoder}
	default:
		return []string{"-c:v", "libx264"}
	}
}

// audioEncoderArgs selects the audio encoder for the requested codec
func audioEncoderArgs(cfg config.Snapshot) []string {
	requested := strings.ToLower(strings.TrimSpace(cfg.TargetAudioCodec()))
	if requested == "" || requested == config.CodecAuto {
		if strings.EqualFold(cfg.TargetFormat(), "webm") {
			return []string{"-c:a", "libopus", "-b:a", AudioBitrate}
		}
		return []string{"-c:a", "aac", "-b:a", AudioBitrate}
	}

	switch requested {
	case "aac":
		return []string{"-c:a", "aac", "-b:a", AudioBitrate}
	case "mp3":
		return []string{"-c:a", "libmp3lame", "-b:a", AudioBitrate}
	case "ogg", "vorbis":
		return []string{"-c:a", "libvorbis", "-b:a", AudioBitrate}
	case "opus":
		return []string{"-c:a", "libopus", "-b:a", AudioBitrate}
	case "flac":
		return []string{"-c:a", "flac"}
	case "wav", "pcm":
		return []string{"-c:a", "pcm_s16le"}
	default:
		return []string{"-c:a", "aac", "-b:a", AudioBitrate}
	}
}

// renameSiblings carries sidecar files sharing the old stem over to the
// new stem. skip names a file left in place (the conversion input, which
// the delete-original step owns). Failures here are cosmetic and only
// logged.
func (r *Runner) renameSiblings(oldStem, newStem, skip string) {
	if oldStem == newStem {
		return
	}
	dir := filepath.Dir(oldStem)
	prefix := filepath.Base(oldStem)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || name == prefix {
			continue
		}
		rest := name[len(prefix):]
		if !strings.HasPrefix(rest, ".") {
			continue
		}
		from := filepath.Join(dir, name)
		to := newStem + rest
		if from == to || from == skip {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			r.logger.Warn().Err(err).Str("path", from).Msg("failed to rename sidecar")
		}
	}
}

// removeEmptyDescription deletes a zero-byte description sidecar
func (r *Runner) removeEmptyDescription(stem string) {
	path := stem + DescriptionSidecarExt
	info, err := os.Stat(path)
	if err != nil || info.Size() > 0 {
		return
	}
	if err := os.Remove(path); err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("failed to remove empty description sidecar")
	}
}

// convertSubtitleSidecars converts srt/vtt sidecars of a media stem
func (r *Runner) convertSubtitleSidecars(stem string) {
	dir := filepath.Dir(stem)
	prefix := filepath.Base(stem)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != "."+config.SubtitleFormatSRT && ext != "."+config.SubtitleFormatVTT {
			continue
		}
		if _, err := ConvertToPlaintext(filepath.Join(dir, name), r.logger); err != nil {
			r.logger.Warn().Err(err).Str("path", name).Msg("plaintext conversion failed")
		}
	}
}

// logLine streams a transcoder output line to the session log sink
func (r *Runner) logLine(line string) {
	if r.logSink != nil {
		r.logSink(line)
	}
}

// canonicalFinalPath computes the file's final name: the temp staging
// suffix is stripped from the stem, and media files take the requested
// container extension when one is constrained.
func canonicalFinalPath(inputPath string, cfg config.Snapshot, subtitle bool) string {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(inputPath, ext)
	stem = strings.TrimSuffix(stem, TempStagingSuffix)

	if !subtitle && cfg.TargetFormat() != config.FormatBest {
		ext = "." + strings.ToLower(cfg.TargetFormat())
	}
	return stem + ext
}

// stemOf strips the extension from a path
func stemOf(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
