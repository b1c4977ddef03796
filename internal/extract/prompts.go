package extract

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system_extract.tmpl
var systemExtractPrompt string

//go:embed user_extract.tmpl
var userExtractTmpl string

//go:embed system_interpret.tmpl
var systemInterpretPrompt string

//go:embed user_interpret.tmpl
var userInterpretTmpl string

var (
	userExtractTemplate   = template.Must(template.New("extract").Parse(userExtractTmpl))
	userInterpretTemplate = template.Must(template.New("interpret").Parse(userInterpretTmpl))
)

// DefaultFieldNames is the standard field set for charts uploaded without
// a template.
var DefaultFieldNames = []string{
	"主訴",
	"現病歴",
	"既往歴",
	"家族歴",
	"生活歴",
	"内服薬",
	"身体所見",
}

// ExtractionSystemPrompt returns the transcription system prompt.
func ExtractionSystemPrompt() string {
	return systemExtractPrompt
}

// ExtractionUserPrompt builds the transcription prompt for a field set.
func ExtractionUserPrompt(fields []string) string {
	var buf bytes.Buffer
	data := struct{ Fields []string }{Fields: fields}
	if err := userExtractTemplate.Execute(&buf, data); err != nil {
		return userExtractTmpl
	}
	return buf.String()
}

// InterpretationSystemPrompt returns the interpretation system prompt.
func InterpretationSystemPrompt() string {
	return systemInterpretPrompt
}

// InterpretationUserPrompt builds the interpretation prompt from the
// phase-one transcription JSON.
func InterpretationUserPrompt(transcriptionsJSON string) string {
	var buf bytes.Buffer
	data := struct{ Transcriptions string }{Transcriptions: transcriptionsJSON}
	if err := userInterpretTemplate.Execute(&buf, data); err != nil {
		return userInterpretTmpl
	}
	return buf.String()
}
