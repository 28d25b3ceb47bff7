// Package matrix loads the ordered list of browser descriptors a suite run
// covers.
package matrix

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Mode selects which matrix file, and which kind of session, a run uses.
type Mode string

const (
	Local  Mode = "local"
	Remote Mode = "remote"
)

// resizeKey is the declared capability flag for programmatic window resizing.
const resizeKey = "supportsResize"

//go:embed browsers-local.json browsers-remote.json
var defaults embed.FS

// Defaults returns the matrices compiled into the binary.
func Defaults() fs.FS {
	return defaults
}

// FileName returns the matrix file name for a mode.
func FileName(mode Mode) string {
	return fmt.Sprintf("browsers-%s.json", mode)
}

// Descriptor is one browser/OS/version target. It is immutable; accessors
// hand out copies.
type Descriptor struct {
	raw  map[string]interface{}
	keys []string
}

// NewDescriptor validates raw and wraps a private copy of it.
func NewDescriptor(raw map[string]interface{}) (Descriptor, error) {
	name, ok := raw["browserName"].(string)
	if !ok || name == "" {
		return Descriptor{}, errors.New("browserName must be a non-empty string")
	}
	if v, present := raw[resizeKey]; present {
		if _, ok := v.(bool); !ok {
			return Descriptor{}, fmt.Errorf("%s must be a boolean, got %T", resizeKey, v)
		}
	}
	return Descriptor{raw: maps.Clone(raw), keys: slices.Sorted(maps.Keys(raw))}, nil
}

func newOrderedDescriptor(raw map[string]interface{}, keys []string) (Descriptor, error) {
	d, err := NewDescriptor(raw)
	if err != nil {
		return Descriptor{}, err
	}
	d.keys = keys
	return d, nil
}

// BrowserName returns the browserName capability.
func (d Descriptor) BrowserName() string { return d.stringField("browserName") }

// Platform returns the platform capability, if any.
func (d Descriptor) Platform() string { return d.stringField("platform") }

// Version returns the version capability, if any.
func (d Descriptor) Version() string { return d.stringField("version") }

// SupportsResize reports whether the browser can be resized programmatically.
// Descriptors that do not declare the flag support it.
func (d Descriptor) SupportsResize() bool {
	v, ok := d.raw[resizeKey].(bool)
	return !ok || v
}

// Capabilities returns a fresh copy of the descriptor's capabilities without
// the suite-only supportsResize flag.
func (d Descriptor) Capabilities() map[string]interface{} {
	caps := maps.Clone(d.raw)
	if caps == nil {
		caps = map[string]interface{}{}
	}
	delete(caps, resizeKey)
	return caps
}

// String is the JSON form of the descriptor's capabilities in matrix file
// order, without supportsResize. It doubles as the grid job name.
// Descriptors built by NewDescriptor use sorted key order.
func (d Descriptor) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, key := range d.keys {
		if key == resizeKey {
			continue
		}
		k, err := json.Marshal(key)
		if err != nil {
			return fmt.Sprintf("%v", d.Capabilities())
		}
		v, err := json.Marshal(d.raw[key])
		if err != nil {
			return fmt.Sprintf("%v", d.Capabilities())
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String()
}

func (d Descriptor) stringField(key string) string {
	s, _ := d.raw[key].(string)
	return s
}

// Load reads the matrix file for mode from fsys. Any problem with the file is
// an error; a run cannot start without a matrix.
func Load(fsys fs.FS, mode Mode) ([]Descriptor, error) {
	if mode != Local && mode != Remote {
		return nil, fmt.Errorf("unknown matrix mode %q", mode)
	}

	name := FileName(mode)
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading matrix: %w", err)
	}

	descriptors, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("matrix %s: %w", name, err)
	}
	return descriptors, nil
}

// Parse decodes an ordered sequence of capability mappings. JSON documents
// are accepted as YAML.
func Parse(data []byte) ([]Descriptor, error) {
	var entries []yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("no descriptors")
	}

	descriptors := make([]Descriptor, 0, len(entries))
	for i, entry := range entries {
		if entry.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("entry %d: not a mapping", i)
		}
		var raw map[string]interface{}
		if err := entry.Decode(&raw); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		keys := make([]string, 0, len(entry.Content)/2)
		for j := 0; j+1 < len(entry.Content); j += 2 {
			keys = append(keys, entry.Content[j].Value)
		}
		d, err := newOrderedDescriptor(raw, keys)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
