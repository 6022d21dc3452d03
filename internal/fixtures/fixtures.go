// Package fixtures embeds recorded browser landmark payloads for tests.
package fixtures

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed testdata/*.json
var framesFS embed.FS

// Payload names.
const (
	OpenPalmRight = "open_palm_right"
	OpenPalmLeft  = "open_palm_left"
	OKSign        = "ok_sign"
	NoHand        = "no_hand"
	FlatOpenPalm  = "flat_open_palm"
	Truncated     = "truncated"
)

// LoadFrame returns the raw JSON payload with the given name.
func LoadFrame(name string) ([]byte, error) {
	data, err := framesFS.ReadFile("testdata/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load frame %s: %w", name, err)
	}
	return data, nil
}

// MustFrame is LoadFrame for test setup; it panics on a missing payload.
func MustFrame(name string) []byte {
	data, err := LoadFrame(name)
	if err != nil {
		panic(err)
	}
	return data
}

// Names lists the embedded payloads in lexical order.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(framesFS, "testdata")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
