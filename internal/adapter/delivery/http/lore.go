package http

import (
	_ "embed"
	"encoding/base32"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoreEncoding names the encoding of the lore field in decoy payloads.
const LoreEncoding = "base32"

// crockfordAlphabet is Crockford's base32 alphabet: no I, L, O or U.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

//go:embed lore.yaml
var loreYAML []byte

type loreFile struct {
	Messages [][]string `yaml:"messages"`
}

// LoreCorpus is the fixed set of decoy messages. It is read-only after load.
type LoreCorpus struct {
	messages []string
}

// LoadLoreCorpus parses the embedded corpus.
func LoadLoreCorpus() (*LoreCorpus, error) {
	return ParseLoreCorpus(loreYAML)
}

// ParseLoreCorpus parses a YAML corpus of line lists, flattening each entry with newlines.
func ParseLoreCorpus(raw []byte) (*LoreCorpus, error) {
	var f loreFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lore corpus: %w", err)
	}
	messages := make([]string, 0, len(f.Messages))
	for _, lines := range f.Messages {
		if len(lines) == 0 {
			continue
		}
		messages = append(messages, strings.Join(lines, "\n"))
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("lore corpus is empty")
	}
	return &LoreCorpus{messages: messages}, nil
}

// Len returns the number of messages.
func (c *LoreCorpus) Len() int {
	return len(c.messages)
}

// Message returns message i, clamping out-of-range indexes.
func (c *LoreCorpus) Message(i int) string {
	if i < 0 {
		i = 0
	}
	if i >= len(c.messages) {
		i = len(c.messages) - 1
	}
	return c.messages[i]
}

// EncodeLore encodes s as uppercase, unpadded Crockford base32.
func EncodeLore(s string) string {
	return crockford.EncodeToString([]byte(s))
}
