// SPDX-License-Identifier: MPL-2.0

// Package loader parses declarative config files into command descriptors,
// resolving remote URLs into locally fetched binaries. Config damage is
// isolated: a broken file contributes zero entries, a broken entry is
// discarded, and the rest of the load proceeds.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatops-anything/internal/command"
)

// Entry field names recognized by the normalizer. Anything else is carried
// through as a passthrough field.
const (
	fieldBinPath = "bin_path"
	fieldURL     = "url"
	fieldName    = "name"
	fieldHelp    = "help"
	fieldTimeout = "timeout"
	fieldEnvVars = "env_vars"
)

type (
	// BinaryFetcher downloads a remote artifact and returns its local path.
	// Implemented by fetch.Fetcher.
	BinaryFetcher interface {
		Fetch(ctx context.Context, rawURL, destName string) (string, error)
	}

	// Loader turns config files into a descriptor mapping.
	Loader struct {
		fetcher BinaryFetcher
	}

	// tomlDocument is the shape of a TOML config file: TOML cannot express a
	// top-level sequence, so entries live in a [[commands]] array of tables.
	tomlDocument struct {
		Commands []map[string]any `toml:"commands"`
	}
)

// configExtensions lists the recognized config file extensions.
var configExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// New creates a Loader that resolves url entries through fetcher.
func New(fetcher BinaryFetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// FindConfigFiles lists the recognized config files directly under root.
// Order is unspecified; duplicate names across files are a caller error the
// loader tolerates with last-processed-wins semantics.
func FindConfigFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing config files in %s: %w", root, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, recognized := range configExtensions {
			if ext == recognized {
				files = append(files, filepath.Join(root, entry.Name()))
				break
			}
		}
	}
	return files, nil
}

// Load parses every config file and returns an accumulated mapping from
// canonical name to descriptor. Per-file and per-entry failures are logged
// and skipped, never fatal; an unusable input set yields an empty mapping.
func (l *Loader) Load(ctx context.Context, paths []string) map[string]*command.Descriptor {
	descriptors := make(map[string]*command.Descriptor)

	for _, path := range paths {
		for _, entry := range l.readFile(path) {
			desc, ok := l.normalize(ctx, entry)
			if !ok {
				continue
			}
			if existing, dup := descriptors[desc.Name]; dup {
				slog.Info("command defined more than once, merging fields with the later entry winning",
					"name", desc.Name, "file", path)
				existing.Merge(desc)
				continue
			}
			descriptors[desc.Name] = desc
		}
	}
	return descriptors
}

// readFile decodes one config file into entry mappings. Unrecognized
// extensions, decode failures, and wrong top-level shapes all degrade to
// zero entries from this file.
func (l *Loader) readFile(path string) []map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("unable to read config file, skipping it", "file", path, "error", err)
		return nil
	}

	var entries []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	case ".json":
		err = json.Unmarshal(data, &entries)
	case ".toml":
		var doc tomlDocument
		if err = toml.Unmarshal(data, &doc); err == nil {
			entries = doc.Commands
		}
	default:
		slog.Warn("config file has an unrecognized extension, skipping it", "file", path)
		return nil
	}

	if err != nil {
		slog.Error("config file does not contain a sequence of mappings, skipping it",
			"file", path, "error", err)
		return nil
	}
	return entries
}

// normalize turns one raw entry into a descriptor, fetching the binary when
// the entry declares a url instead of a bin_path. Returns false when the
// entry must be discarded.
func (l *Loader) normalize(ctx context.Context, entry map[string]any) (*command.Descriptor, bool) {
	binPath, _ := entry[fieldBinPath].(string)
	rawURL, _ := entry[fieldURL].(string)
	rawName, _ := entry[fieldName].(string)

	if binPath == "" {
		if rawURL == "" {
			slog.Error("config entry has neither bin_path nor url, discarding it", "entry", entry)
			return nil, false
		}
		if rawName == "" {
			slog.Error("config entry has a url but no name, discarding it", "url", rawURL)
			return nil, false
		}

		u, err := url.Parse(strings.TrimSpace(rawURL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			slog.Error("config entry url is not http or https, discarding it", "url", rawURL)
			return nil, false
		}

		fetched, err := l.fetcher.Fetch(ctx, strings.TrimSpace(rawURL), rawName)
		if err != nil {
			slog.Error("unable to download executable, discarding this entry", "url", rawURL, "error", err)
			return nil, false
		}
		binPath = fetched
	}

	name := rawName
	if name == "" {
		name = filepath.Base(binPath)
	}

	desc := &command.Descriptor{
		Name:    command.CanonicalName(name),
		BinPath: binPath,
	}
	if help, ok := entry[fieldHelp].(string); ok {
		desc.Help = help
	}
	if seconds, ok := asInt64(entry[fieldTimeout]); ok && seconds > 0 {
		desc.Timeout = time.Duration(seconds) * time.Second
	}
	if env := asStringMap(entry[fieldEnvVars]); len(env) > 0 {
		desc.EnvVars = env
	}

	for k, v := range entry {
		switch k {
		case fieldBinPath, fieldURL, fieldName, fieldHelp, fieldTimeout, fieldEnvVars:
		default:
			if desc.Extra == nil {
				desc.Extra = make(map[string]any)
			}
			desc.Extra[k] = v
		}
	}
	return desc, true
}

// asInt64 accepts the integer representations the three decoders produce.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// asStringMap flattens a decoded mapping into string→string, skipping
// non-string values.
func asStringMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
