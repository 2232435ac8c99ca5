// Package textenc translates path and listing text between UTF-8 and a
// configured host-native encoding, for sessions that have negotiated
// OPTS UTF8 ON against a server advertising utf8_capability.
package textenc

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Codec transcodes between UTF-8 and a fixed system encoding.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// New resolves name (an IANA charset name such as "ISO-8859-1" or
// "Shift_JIS") to a Codec. "UTF-8" resolves to a no-op codec.
func New(name string) (*Codec, error) {
	if name == "" || isUTF8Name(name) {
		return &Codec{name: "UTF-8"}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("textenc: unknown system encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("textenc: unsupported system encoding %q", name)
	}
	return &Codec{name: name, enc: enc}, nil
}

func isUTF8Name(name string) bool {
	switch name {
	case "UTF-8", "utf-8", "UTF8", "utf8":
		return true
	default:
		return false
	}
}

// ToSystem converts a UTF-8 string to the codec's system encoding.
func (c *Codec) ToSystem(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("textenc: encode to %s: %w", c.name, err)
	}
	return out, nil
}

// ToUTF8 converts a string in the codec's system encoding to UTF-8.
func (c *Codec) ToUTF8(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}
	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("textenc: decode from %s: %w", c.name, err)
	}
	return out, nil
}

// Name reports the resolved system encoding name.
func (c *Codec) Name() string { return c.name }
