package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
	"github.com/anatolykoptev/go_dictation/internal/toolutil"
)

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "captionctl",
		Short:         "Fetch captions and translate text from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			engine.Init(engine.ConfigFromEnv())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")

	rootCmd.AddCommand(newCaptionsCommand())
	rootCmd.AddCommand(newTranslateCommand())
	rootCmd.AddCommand(newSpeakCommand())
	return rootCmd
}

func newCaptionsCommand() *cobra.Command {
	var langs []string

	cmd := &cobra.Command{
		Use:   "captions <videoId|url>",
		Short: "Print the normalized captions of a YouTube video as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(langs) > 0 {
				engine.Cfg.CaptionLanguages = langs
			}
			fetcher, err := sources.NewCaptionFetcherFromConfig(engine.Cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sentences, err := fetcher.Fetch(ctx, sources.NormalizeVideoID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toolutil.CaptionsEnvelope(sentences, nil))
		},
	}
	cmd.Flags().StringSliceVar(&langs, "lang", nil, "Preferred caption languages in priority order (default from CAPTION_LANGUAGES)")
	return cmd
}

func newTranslateCommand() *cobra.Command {
	var target, source string

	cmd := &cobra.Command{
		Use:   "translate <text>...",
		Short: "Translate text with the Google Translation API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			translator := sources.NewTranslatorFromConfig(engine.Cfg)
			out, err := translator.Translate(cmd.Context(), strings.Join(args, " "), toolutil.NormTargetLang(target), source)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toolutil.TranslateResponse{Translation: out})
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", toolutil.DefaultTargetLanguage, "Target language code")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source language code (default: auto-detect)")
	return cmd
}

func newSpeakCommand() *cobra.Command {
	var language, output string

	cmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Synthesize speech with the Google Text-to-Speech API and write an MP3 file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			synth := sources.NewSynthesizerFromConfig(engine.Cfg)
			speech, err := synth.Synthesize(cmd.Context(), strings.Join(args, " "), language)
			if err != nil {
				return err
			}
			audio, err := base64.StdEncoding.DecodeString(speech.AudioBase64)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, audio, 0o644); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"file": output, "length": speech.Size})
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", sources.DefaultSpeechLanguage, "Voice language code")
	cmd.Flags().StringVarP(&output, "output", "o", "speech.mp3", "Output MP3 file")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
