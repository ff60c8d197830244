// internal/firewall/loader.go
package firewall

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ErrNoBlockedList is returned for a YAML source without a blocked key.
var ErrNoBlockedList = errors.New("yaml source has no blocked list")

// ConfigError reports a blocked-IP source that is missing or malformed.
// The simulation must not start when one is returned.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("blocked IP source %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EntryError describes one rejected entry of a blocked-IP source.
type EntryError struct {
	Line  int
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("line %d: invalid address %q: %v", e.Line, e.Entry, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

type yamlSource struct {
	Blocked *[]string `yaml:"blocked"`
}

// Load reads a blocked-IP source. Files ending in .yaml or .yml hold a
// `blocked:` list; anything else is one address per line with # comments.
// An empty path yields an empty registry. Either every entry is valid and a
// complete registry is returned, or a *ConfigError is.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return ParseText(bytes.NewReader(data), path)
	}
}

// ParseText parses the line-oriented format.
func ParseText(r io.Reader, source string) (*Registry, error) {
	var entries []string
	var lines []int

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		entries = append(entries, line)
		lines = append(lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	return build(source, entries, lines)
}

// ParseYAML parses the structured format. The document must have a
// blocked list and no other keys.
func ParseYAML(data []byte, source string) (*Registry, error) {
	var doc yamlSource
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrNoBlockedList
		}
		return nil, &ConfigError{Source: source, Err: err}
	}
	if doc.Blocked == nil {
		return nil, &ConfigError{Source: source, Err: ErrNoBlockedList}
	}

	// Line numbers are not kept by the plain decoder; entries are numbered
	// by position in the list instead.
	entries := *doc.Blocked
	lines := make([]int, len(entries))
	for i := range lines {
		lines[i] = i + 1
	}
	return build(source, entries, lines)
}

func build(source string, entries []string, lines []int) (*Registry, error) {
	reg := &Registry{addrs: make(map[string]struct{}, len(entries)), source: source}

	var errs error
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			errs = multierr.Append(errs, &EntryError{Line: lines[i], Entry: entry, Err: err})
			continue
		}
		reg.addrs[addr.Unmap().String()] = struct{}{}
	}
	if errs != nil {
		return nil, &ConfigError{Source: source, Err: errs}
	}
	return reg, nil
}
