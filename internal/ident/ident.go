// Package ident generates record identifiers and module colors.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixModule = "mod"
	PrefixTask   = "task"
)

// palette is the fixed set of module colors.
var palette = [12]string{
	"#5BA4E6", // sky blue
	"#4ECBA0", // mint green
	"#F59E5F", // warm peach
	"#F06F8E", // coral pink
	"#9B85E8", // soft violet
	"#E6B84D", // golden yellow
	"#3CBFDC", // turquoise
	"#7AC46F", // fresh green
	"#F07C5C", // salmon coral
	"#7A8FE8", // periwinkle blue
	"#D67BE8", // orchid purple
	"#4FC9C4", // teal
}

// Palette returns a copy of the module color palette.
func Palette() []string {
	out := make([]string, len(palette))
	copy(out, palette[:])
	return out
}

// NewID returns a unique id such as "mod_0190f3c2...". The body is a UUIDv7
// (millisecond timestamp, 74 random bits) followed by 64 more random bits,
// 48 hex characters in all.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	var extra [8]byte
	_, _ = rand.Read(extra[:])
	body := strings.ReplaceAll(id.String(), "-", "") + hex.EncodeToString(extra[:])
	if prefix == "" {
		return body
	}
	return prefix + "_" + body
}

// RandomModuleColor picks a palette color uniformly at random.
func RandomModuleColor() string {
	return palette[mathrand.IntN(len(palette))]
}
