// Command ttssync synchronizes a WebVTT caption track against a
// text-to-speech voice, producing a single audio file whose speech timing
// matches the captions' cue windows.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/region23/tts-sync/internal/config"
	"github.com/region23/tts-sync/internal/encode"
	"github.com/region23/tts-sync/internal/progress"
	"github.com/region23/tts-sync/internal/sync"
	"github.com/region23/tts-sync/internal/ttsclient"
	"github.com/region23/tts-sync/internal/ttscache"
	"github.com/region23/tts-sync/internal/vtt"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var (
		captionsPath  string
		outputPath    string
		videoDuration float64
		endpoint      string
		apiKey        string
		configPath    string
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "ttssync",
		Short: "Synchronize WebVTT captions to a synthesized voice track",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr)
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}

			if configPath != "" {
				v.SetConfigFile(configPath)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			bindFlags(v, cmd)

			opts, err := config.LoadOptionsFromViper(v)
			if err != nil {
				return err
			}

			if apiKey == "" {
				apiKey = os.Getenv("TTS_SYNC_API_KEY")
			}
			if apiKey == "" {
				return fmt.Errorf("no TTS API key provided (use --api-key or TTS_SYNC_API_KEY)")
			}
			if captionsPath == "" {
				return fmt.Errorf("--captions is required")
			}
			if outputPath == "" {
				return fmt.Errorf("--output is required")
			}

			f, err := os.Open(captionsPath)
			if err != nil {
				return fmt.Errorf("open captions: %w", err)
			}
			defer f.Close()

			cues, err := vtt.Parse(f)
			if err != nil {
				return fmt.Errorf("parse captions: %w", err)
			}
			logger.Info("parsed captions", "cues", len(cues))

			httpClient := &http.Client{Timeout: time.Duration(opts.TTSTimeoutS) * time.Second}
			client := ttsclient.NewClient(endpoint, apiKey, httpClient, logger)
			if cacheDir, err := ttscache.DefaultDir(); err == nil {
				if disk, err := ttscache.Open(cacheDir, logger); err == nil {
					client.WithDiskCache(disk)
				} else {
					logger.Warn("tts disk cache unavailable", "cause", err)
				}
			}
			synchr := sync.New(client, logger)

			tracker := progress.WithCallback(func(percent float32, status string) {
				logger.Info("progress", "percent", fmt.Sprintf("%.0f", percent), "phase", status)
			})

			ctx := context.Background()
			result, err := synchr.Synchronize(ctx, cues, videoDuration, opts, tracker)
			if err != nil {
				return fmt.Errorf("synchronize: %w", err)
			}
			for _, w := range result.Warnings {
				logger.Warn(w)
			}

			format := strings.TrimPrefix(strings.ToLower(outputExt(outputPath)), ".")
			if format == "" {
				format = string(opts.OutputFormat)
			}
			if format == "mp3" && result.RawMP3 != nil {
				if err := encode.SaveRawMP3(outputPath, result.RawMP3); err != nil {
					return fmt.Errorf("save output: %w", err)
				}
				logger.Debug("wrote output via direct mp3 passthrough")
			} else if err := encode.Save(ctx, outputPath, result.Buffer, format); err != nil {
				return fmt.Errorf("save output: %w", err)
			}
			logger.Info("wrote output", "path", outputPath, "duration_s", fmt.Sprintf("%.2f", result.Buffer.Duration()))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&captionsPath, "captions", "", "path to a WebVTT caption file")
	flags.StringVar(&outputPath, "output", "", "path to write the synchronized audio track")
	flags.Float64Var(&videoDuration, "video-duration", 0, "target track duration in seconds (0 = derive from last cue)")
	flags.StringVar(&endpoint, "endpoint", "https://api.openai.com/v1/audio/speech", "TTS provider endpoint")
	flags.StringVar(&apiKey, "api-key", "", "TTS provider API key (or set TTS_SYNC_API_KEY)")
	flags.StringVar(&configPath, "config", "", "optional YAML config file overriding sync option defaults")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")

	flags.String("voice", "", "TTS voice (default alloy)")
	flags.String("tts-model", "", "TTS model (default tts-1)")
	flags.String("output-format", "", "output container: mp3, wav, or ogg")
	flags.Int("sample-rate", 0, "canonical processing sample rate")
	flags.Bool("normalize-volume", false, "apply peak normalization")
	flags.Bool("apply-compression", false, "apply dynamic range compression")
	flags.Bool("apply-equalization", false, "apply 3-band equalization")
	flags.String("tempo-algorithm", "", "tempo adjustment kernel: sinc, fir, or linear")
	flags.Bool("preserve-pauses", false, "hold internal silences steady while stretching speech")
	flags.Int("concurrency", 0, "maximum concurrent TTS fetches")
	flags.Bool("best-effort", false, "substitute silence for cues whose synthesis fails")

	return cmd
}

// bindFlags binds any cobra flag the user actually set to its matching Viper
// key, so LoadOptionsFromViper's IsSet checks pick it up.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})
}

func outputExt(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
