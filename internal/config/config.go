/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config loads the server's flat `name=value` configuration file:
// `#` trailing comments, blank lines ignored, and a recursive `include
// <absolute-path>` directive bounded to a fixed nesting depth. This is
// not the teacher's own gcfg-based grammar -- gcfg is `[section]`-keyed
// INI, and this format has no sections -- so the loader is hand-rolled
// against bufio.Scanner the way the teacher's own ingest/config package
// hand-rolls its include/overlay handling.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// maxConfigSize bounds any single config file read, mirroring the
// teacher's own sanity cap in ingest/config.LoadConfigFile.
const maxConfigSize = 2 * 1024 * 1024

// maxIncludeDepth bounds recursive `include` nesting.
const maxIncludeDepth = 10

var (
	ErrConfigTooLarge    = errors.New("config file too large")
	ErrIncludeNotAbsolute = errors.New("include path must be absolute")
	ErrIncludeTooDeep    = errors.New("include nesting too deep")
	ErrMalformedLine     = errors.New("malformed config line, expected name=value")
)

// Config is the parsed, flattened configuration: every `name=value` pair
// encountered across the root file and any files it includes, last value
// wins.
type Config struct {
	values map[string]string
}

// Load reads and parses the config file at path, following `include`
// directives. This is the moral equivalent of the teacher's
// config.LoadConfigFile, adapted to the flat grammar.
func Load(path string) (*Config, error) {
	c := &Config{values: make(map[string]string)}
	if err := c.load(path, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) load(path string, depth int) error {
	if depth > maxIncludeDepth {
		return ErrIncludeTooDeep
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() > maxConfigSize {
		return ErrConfigTooLarge
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if rest, ok := cutPrefix(line, "include"); ok {
			incPath := strings.TrimSpace(rest)
			if !filepath.IsAbs(incPath) {
				return fmt.Errorf("%s: %w", incPath, ErrIncludeNotAbsolute)
			}
			if err := c.load(incPath, depth+1); err != nil {
				return err
			}
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return fmt.Errorf("%q: %w", line, ErrMalformedLine)
		}
		name := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if name == "" {
			return fmt.Errorf("%q: %w", line, ErrMalformedLine)
		}
		c.values[name] = value
	}
	return sc.Err()
}

// cutPrefix reports whether line starts with the "include" keyword
// followed by whitespace, returning the remainder.
func cutPrefix(line, keyword string) (string, bool) {
	if !strings.HasPrefix(line, keyword) {
		return "", false
	}
	rest := line[len(keyword):]
	if rest == "" || !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	return rest, true
}

// Get returns a raw string value, or "" if unset.
func (c *Config) Get(name string) string {
	return c.values[name]
}

// Has reports whether name was set.
func (c *Config) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// GetDefault returns a raw string value, or def if unset.
func (c *Config) GetDefault(name, def string) string {
	if v, ok := c.values[name]; ok {
		return v
	}
	return def
}

// GetInt parses name as a base-10 integer.
func (c *Config) GetInt(name string, def int) (int, error) {
	v, ok := c.values[name]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// GetBool parses name as a boolean (accepts the same spellings as
// strconv.ParseBool: 1/t/T/TRUE/true/True, 0/f/F/FALSE/false/False).
func (c *Config) GetBool(name string, def bool) (bool, error) {
	v, ok := c.values[name]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// GetDuration parses name with time.ParseDuration.
func (c *Config) GetDuration(name string, def time.Duration) (time.Duration, error) {
	v, ok := c.values[name]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
