package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spacesedan/sentiscore/config"
	"github.com/spacesedan/sentiscore/internal/report"
	"github.com/spacesedan/sentiscore/internal/sentiment"
	"github.com/spf13/cobra"
)

// exampleTexts are scored when no input is given: a satisfied, an unsure
// and an unhappy customer.
var exampleTexts = []string{
	"Ten produkt jest wspaniały, jestem bardzo zadowolony z zakupu!",
	"Nie jestem pewien, czy to było warte swojej ceny.",
	"To była najgorsza decyzja zakupowa, jaką kiedykolwiek podjąłem.",
}

const maxLineBytes = 1024 * 1024

func newRootCmd(settings config.Settings) *cobra.Command {
	cfg := sentiment.ConfigFromSettings(settings)
	var (
		format    string
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "sentiscore [text...]",
		Short: "Score text sentiment on a 1-5 star scale",
		Long: `sentiscore runs a pretrained multilingual classifier over each text and
prints the 1-5 sentiment score together with the probability of every class.

With no texts and no --stdin it scores three built-in examples.

Backends:
  hugot    hugot text-classification pipeline on ONNX Runtime (default)
  onnx     tokenizer.json + raw ONNX Runtime forward pass
  remote   Hugging Face hosted inference API
  lexicon  offline VADER lexicon mapped onto five classes
  openai   chat model rating read from answer log probabilities`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var texts []string
			switch {
			case fromStdin && len(args) > 0:
				return errors.New("texts cannot be given as arguments together with --stdin")
			case fromStdin:
				var err error
				texts, err = readLines(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			case len(args) > 0:
				texts = args
			default:
				texts = exampleTexts
			}

			printer, err := report.NewPrinter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			analyzer := sentiment.NewAnalyzer(cfg, settings.CacheTTL)
			defer func() {
				if err := analyzer.Close(); err != nil {
					slog.Warn("[Main] Failed to release classifiers", slog.String("error", err.Error()))
				}
			}()

			slog.Debug("[Main] Scoring texts",
				slog.Int("count", len(texts)),
				slog.String("backend", cfg.Backend),
				slog.String("model", cfg.Model))

			for _, text := range texts {
				result, err := analyzer.Classify(cmd.Context(), text)
				if err != nil {
					return fmt.Errorf("failed to classify %q: %w", preview(text), err)
				}
				if err := printer.Print(result); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, "model name on the Hugging Face hub, or a local model directory")
	flags.StringVarP(&cfg.Backend, "backend", "b", cfg.Backend, "inference backend: "+strings.Join(sentiment.Backends(), ", "))
	flags.StringVar(&cfg.ModelDir, "model-dir", cfg.ModelDir, "directory downloaded models are kept in")
	flags.IntVar(&cfg.MaxLength, "max-length", cfg.MaxLength, "maximum number of tokens per text")
	flags.StringVar(&cfg.Padding, "padding", cfg.Padding, "padding mode: longest or max_length")
	flags.BoolVar(&cfg.StripMarkdown, "strip-markdown", cfg.StripMarkdown, "render markdown and drop links before scoring")
	flags.StringVarP(&format, "format", "f", report.FORMAT_TEXT, "output format: text or json")
	flags.BoolVar(&fromStdin, "stdin", false, "read one text per line from stdin")

	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return text
}
