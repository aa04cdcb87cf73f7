package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// source is the flattened key/value view every Config field is read from.
// Later layers override earlier ones: defaults, app.json, .env, process env.
type source map[string]string

func (s source) str(key string) string {
	return strings.TrimSpace(s[key])
}

func (s source) integer(key string) int {
	return cast.ToInt(s.str(key))
}

func (s source) boolean(key string) bool {
	return cast.ToBool(s.str(key))
}

func (s source) duration(key string) time.Duration {
	return cast.ToDuration(s.str(key))
}

func (s source) list(key string) []string {
	raw := s.str(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadSource(opts Options) (source, error) {
	loaded := defaultValues()

	if opts.ConfigPath != "" {
		if err := mergeJSONConfig(opts.ConfigPath, loaded); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if opts.EnvPath != "" {
		if err := mergeDotEnv(opts.EnvPath, loaded); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if !opts.SkipProcessEnv {
		for key := range loaded {
			if v, ok := os.LookupEnv(key); ok {
				loaded[key] = v
			}
		}
	}

	for key, value := range opts.Overrides {
		loaded[strings.ToUpper(key)] = value
	}

	return loaded, nil
}

func mergeJSONConfig(path string, out source) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]any
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}

	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		// Numbers and booleans are accepted too; cast normalises them.
		s, err := cast.ToStringE(val)
		if err != nil {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out source) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	return nil
}
