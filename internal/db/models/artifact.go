package models

// Page is one logical unit of extracted text, numbered from 1
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk is a bounded-size piece of a page's text awaiting translation
type Chunk struct {
	Index int    `json:"index"`
	Page  int    `json:"page"`
	Text  string `json:"text"`
}

// TranslatedChunk pairs a chunk with its translated text
type TranslatedChunk struct {
	Chunk
	Translated string `json:"translated"`
}
