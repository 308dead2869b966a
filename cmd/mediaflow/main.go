package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/model"
	"github.com/ytget/mediaflow/internal/resolver"
	"github.com/ytget/mediaflow/internal/session"
	"github.com/ytget/mediaflow/internal/tempfiles"
)

func main() {
	var (
		outputDir      = flag.String("o", "", "output directory (default: ~/Downloads)")
		format         = flag.String("format", config.FormatBest, "target container (best, mp4, mkv, webm, avi)")
		videoCodec     = flag.String("video-codec", config.CodecAuto, "target video codec (auto, h264, h265, vp9, av1)")
		audioCodec     = flag.String("audio-codec", config.CodecAuto, "target audio codec")
		quality        = flag.String("quality", config.QualityBest, "quality cap (best or max height, e.g. 1080)")
		audioOnly      = flag.Bool("audio-only", false, "extract audio only")
		audioFormat    = flag.String("audio-format", "", "audio extraction format (mp3, m4a, ...)")
		audioQuality   = flag.Int("audio-quality", 0, "audio bitrate in kbit/s for extraction")
		keepVideo      = flag.Bool("keep-video", false, "keep the video file after audio extraction")
		subsOnly       = flag.Bool("subs-only", false, "download subtitles only")
		subs           = flag.Bool("subs", false, "download subtitles alongside media")
		autoSubs       = flag.Bool("auto-subs", false, "include auto-generated subtitles")
		subLangs       = flag.String("sub-langs", "", "subtitle language list (comma separated)")
		subFormat      = flag.String("sub-format", "", "subtitle format (srt, vtt, txt)")
		embedSubs      = flag.Bool("embed-subs", false, "embed subtitles into the media file")
		thumbnail      = flag.Bool("thumbnail", false, "write thumbnail sidecar")
		embedThumbnail = flag.Bool("embed-thumbnail", false, "embed thumbnail into the media file")
		description    = flag.Bool("write-description", false, "write description sidecar")
		infoJSON       = flag.Bool("write-info-json", false, "write metadata json sidecar")
		noPlaylist     = flag.Bool("no-playlist", false, "download single video, not its playlist")
		maxDownloads   = flag.Int("max-downloads", 0, "stop after N downloads")
		rateLimit      = flag.String("rate-limit", "", "download rate limit (e.g. 4.2M)")
		retries        = flag.Int("retries", -1, "fetcher retry count")
		proxy          = flag.String("proxy", "", "proxy URL")
		userAgent      = flag.String("user-agent", "", "override the fetcher's user agent")
		cookiesFile    = flag.String("cookies", "", "Netscape cookie file to read")
		cookiesBrowser = flag.String("cookies-from-browser", "", "load cookies from this browser")
		forceConvert   = flag.Bool("force-convert", false, "re-encode even when codecs already match")
		deleteOriginal = flag.Bool("delete-original", false, "delete source file after conversion")
		verbose        = flag.Bool("verbose", false, "verbose fetcher output")
		fetcherPath    = flag.String("fetcher", "", "explicit fetcher executable path")
		transcoderPath = flag.String("transcoder", "", "explicit transcoder executable path")
		install        = flag.Bool("install-fetcher", false, "download a managed fetcher binary if none is found")
		sweepOnly      = flag.Bool("sweep", false, "sweep stale temp files and exit")
	)
	flag.Parse()

	logLevel := zerolog.WarnLevel
	if *verbose {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	temps := tempfiles.NewRegistry(logger)
	temps.SweepStale(tempfiles.StaleAge)
	if *sweepOnly {
		return
	}

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mediaflow [flags] URL [URL...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Snapshot{
		OutputDir:          *outputDir,
		Format:             *format,
		VideoCodec:         *videoCodec,
		AudioCodec:         *audioCodec,
		QualityCap:         *quality,
		AudioOnly:          *audioOnly,
		AudioFormat:        *audioFormat,
		AudioQuality:       *audioQuality,
		KeepVideo:          *keepVideo,
		SubtitleOnly:       *subsOnly,
		DownloadSubtitles:  *subs || *subsOnly,
		AutoSubtitles:      *autoSubs,
		SubtitleLangs:      *subLangs,
		SubtitleFormat:     *subFormat,
		EmbedSubtitles:     *embedSubs,
		WriteThumbnail:     *thumbnail,
		EmbedThumbnail:     *embedThumbnail,
		WriteDescription:   *description,
		WriteInfoJSON:      *infoJSON,
		NoPlaylist:         *noPlaylist,
		MaxDownloads:       *maxDownloads,
		RateLimit:          *rateLimit,
		Retries:            *retries,
		Proxy:              *proxy,
		UserAgent:          *userAgent,
		CookiesFromBrowser: *cookiesBrowser != "",
		Browser:            *cookiesBrowser,
		ForceConvert:       *forceConvert,
		DeleteOriginal:     *deleteOriginal,
		Verbose:            *verbose,
		FetcherPath:        *fetcherPath,
		TranscoderPath:     *transcoderPath,
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "~/Downloads"
	}
	if *cookiesFile != "" {
		data, err := os.ReadFile(*cookiesFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read cookie file")
		}
		cfg.CookieText = string(data)
	}

	fetcherChain := resolver.Chain{resolver.PathLookup{Name: "yt-dlp"}}
	if *install {
		fetcherChain = append(fetcherChain, &resolver.Installer{})
	}

	done := make(chan model.SessionSnapshot, 1)
	coord := session.NewCoordinator(session.Options{
		Logger:             logger,
		FetcherResolver:    fetcherChain,
		TranscoderResolver: resolver.PathLookup{Name: "ffmpeg"},
		Temps:              temps,
		OnUpdate: func(snap model.SessionSnapshot) {
			if snap.Status == model.StatusRunning && snap.Progress > 0 {
				fmt.Printf("\r\033[2K%5.1f%%  %s  ETA %s", snap.Progress*100, snap.Speed, snap.ETA)
			}
			if snap.Status.IsTerminal() {
				select {
				case done <- snap:
				default:
				}
			}
		},
	})

	ctx := context.Background()
	if err := coord.Start(ctx, urls, cfg); err != nil {
		logger.Fatal().Err(err).Msg("session failed to start")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "\ncancelling...")
			coord.Cancel()
		case snap := <-done:
			fmt.Println()
			switch snap.Status {
			case model.StatusCompleted:
				fmt.Println(snap.OutputPath)
				return
			case model.StatusCancelled:
				fmt.Fprintln(os.Stderr, "cancelled")
				os.Exit(130)
			default:
				fmt.Fprintln(os.Stderr, snap.LastError)
				os.Exit(1)
			}
		}
	}
}
