package main

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campusbeacon/beacon/internal/campus"
	"github.com/campusbeacon/beacon/internal/restclient"
)

// payloadFlags collects a request body from a YAML/JSON file and key=value
// pairs. Pairs override keys from the file.
type payloadFlags struct {
	sets []string
	file string
}

func (p *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&p.sets, "set", nil, "field as key=value; values are parsed as YAML scalars or lists (repeatable)")
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "read fields from a YAML or JSON file")
}

func (p payloadFlags) fields() (map[string]any, error) {
	fields := map[string]any{}
	if p.file != "" {
		data, err := os.ReadFile(p.file)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p.file, err)
		}
	}
	for _, kv := range p.sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		value, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", kv, err)
		}
		fields[key] = value
	}
	return fields, nil
}

var errNoFields = errors.New("no fields given: use --set or --file")

// parseValue reads raw as a YAML value so numbers, booleans, null and
// [a, b] lists keep their type. An empty value stays an empty string.
func parseValue(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	if _, isMap := v.(map[string]any); isMap {
		// "a: b" is almost certainly meant as text.
		return raw, nil
	}
	return v, nil
}

func parseFilters(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --filter %q: want key=value", kv)
		}
		q.Add(strings.TrimSpace(key), value)
	}
	return q, nil
}

// marketplaceForm sends listings as multipart so images can be attached.
func marketplaceForm(cmd *cobra.Command, fields map[string]any) (any, error) {
	paths, err := cmd.Flags().GetStringArray("image")
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 && len(paths) == 0 {
		return nil, fmt.Errorf("%w, or attach --image", errNoFields)
	}
	files := make([]restclient.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, restclient.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
	}
	if tags, ok := fields["tags"].(string); ok {
		fields["tags"] = splitTags(tags)
	}
	return campus.MarketplaceForm(fields, files...), nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
