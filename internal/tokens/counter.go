// Package tokens estimates prompt sizes for logging and span attributes.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter estimates token counts with a tiktoken encoding.
type Counter struct {
	encoding tokenizer.Encoding

	once  sync.Once
	codec tokenizer.Codec
}

// NewCounter returns a counter for the encoding closest to model. An empty
// model uses o200k_base, which the current vision models share.
func NewCounter(model string) *Counter {
	return &Counter{encoding: encodingFor(model)}
}

// Encoding returns the tiktoken encoding in use.
func (c *Counter) Encoding() tokenizer.Encoding {
	return c.encoding
}

// Estimate counts the tokens in text. If the codec cannot be loaded it falls
// back to roughly four bytes per token.
func (c *Counter) Estimate(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		codec, err := tokenizer.Get(c.encoding)
		if err == nil {
			c.codec = codec
		}
	})
	if c.codec == nil {
		return approximate(text)
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return approximate(text)
	}
	return len(ids)
}

func approximate(text string) int {
	return (len(text) + 3) / 4
}

// encodingFor maps a model name to its encoding.
//
//   - O200kBase: gpt-4o, gpt-4.1, gpt-5, o-series, and unknown models
//   - Cl100kBase: gpt-4, gpt-3.5
func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"), strings.HasPrefix(model, "gpt-5"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
