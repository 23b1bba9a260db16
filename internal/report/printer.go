package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spacesedan/sentiscore/internal/models"
	"github.com/spacesedan/sentiscore/internal/sentiment"
)

const (
	FORMAT_TEXT = "text"
	FORMAT_JSON = "json"

	ruleWidth = 80
)

type Printer interface {
	Print(result models.SentimentResult) error
}

func NewPrinter(format string, w io.Writer) (Printer, error) {
	switch format {
	case FORMAT_TEXT, "":
		return &TextPrinter{w: w}, nil
	case FORMAT_JSON:
		return &JSONPrinter{enc: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// TextPrinter writes one human-readable block per result.
type TextPrinter struct {
	w io.Writer
}

func (p *TextPrinter) Print(result models.SentimentResult) error {
	_, err := fmt.Fprintf(p.w, "Text: %s\nSentiment score (1-%d): %d\nClass probabilities: %s%%\n%s\n",
		result.Text,
		len(result.Probabilities),
		result.Score,
		FormatPercentages(result.Probabilities),
		strings.Repeat("-", ruleWidth))
	return err
}

// FormatPercentages renders probabilities as a bracketed list of percentages
// rounded to two decimals, without trailing zeros.
func FormatPercentages(probabilities []float64) string {
	parts := make([]string, 0, len(probabilities))
	for _, pct := range sentiment.Percentages(probabilities) {
		s := strconv.FormatFloat(pct, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		parts = append(parts, s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// JSONPrinter writes one JSON object per line.
type JSONPrinter struct {
	enc *json.Encoder
}

type jsonResult struct {
	models.SentimentResult
	Percentages []float64 `json:"percentages"`
	Confidence  float64   `json:"confidence"`
}

func (p *JSONPrinter) Print(result models.SentimentResult) error {
	return p.enc.Encode(jsonResult{
		SentimentResult: result,
		Percentages:     sentiment.Percentages(result.Probabilities),
		Confidence:      result.Confidence(),
	})
}
