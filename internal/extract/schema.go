package extract

import "encoding/json"

// ExtractionSchema validates phase-one output: one transcription object
// per requested field.
var ExtractionSchema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["item_name", "raw_text"],
		"additionalProperties": false,
		"properties": {
			"item_name": {"type": "string"},
			"raw_text": {"type": ["string", "null"]}
		}
	}
}`)

// InterpretationSchema validates phase-two output: one interpretation
// object per transcribed field.
var InterpretationSchema = json.RawMessage(`{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["item_name", "interpreted_text"],
		"additionalProperties": false,
		"properties": {
			"item_name": {"type": "string"},
			"interpreted_text": {"type": ["string", "null"]}
		}
	}
}`)

// rawField is one phase-one transcription.
type rawField struct {
	ItemName string  `json:"item_name"`
	RawText  *string `json:"raw_text"`
}

// interpretedField is one phase-two interpretation.
type interpretedField struct {
	ItemName        string  `json:"item_name"`
	InterpretedText *string `json:"interpreted_text"`
}
