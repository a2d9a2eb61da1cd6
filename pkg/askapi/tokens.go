package askapi

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding. If the encoding
// cannot be loaded it falls back to one token per four bytes.
type TiktokenCounter struct {
	once    sync.Once
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter; the encoding is loaded on first use.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			c.encoder = enc
		}
	})
	if c.encoder == nil {
		return (len(text) + 3) / 4
	}
	return len(c.encoder.Encode(text, nil, nil))
}
