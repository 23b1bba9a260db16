package models

type (
	TextClassificationRequest struct {
		Inputs     string                       `json:"inputs"`
		Parameters TextClassificationParameters `json:"parameters"`
	}
	TextClassificationParameters struct {
		TopK            int    `json:"top_k,omitempty"`
		FunctionToApply string `json:"function_to_apply,omitempty"`
		Truncation      bool   `json:"truncation,omitempty"`
		MaxLength       int    `json:"max_length,omitempty"`
	}
)

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ModelConfig is the subset of a transformers config.json we read.
type ModelConfig struct {
	ID2Label map[string]string `json:"id2label"`
}
