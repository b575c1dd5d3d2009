// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the per-user settings file looked up in $HOME when no
// explicit path is given.
const DefaultFileName = ".flowsyncrc.toml"

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "FLOWSYNC_"

// Settings are the file- and environment-sourced defaults. Command-line
// flags override them last; precedence is defaults < file < environment
// < flags. Boolean keys are pointers so an absent key is distinguishable
// from an explicit false.
type Settings struct {
	Threads int    `toml:"threads"`
	Web     Web    `toml:"web"`
	Ingest  Ingest `toml:"ingest"`
	Seen    bool   `toml:"-"` // a settings file was found and parsed
}

// Web is the tracking service connection block.
type Web struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// Ingest is the reconciliation defaults block.
type Ingest struct {
	Project           string  `toml:"project_uuid"`
	Operator          string  `toml:"operator"`
	Register          *bool   `toml:"register"`
	Update            *bool   `toml:"update"`
	AnalyzeAdapters   *bool   `toml:"analyze_adapters"`
	PostAdapters      *bool   `toml:"post_adapters"`
	SkipIfStatusFinal *bool   `toml:"skip_if_status_final"`
	SampleReads       int     `toml:"sample_reads_per_tile"`
	MinIndexFraction  float64 `toml:"min_index_fraction"`
}

// Load resolves settings from the given file path (empty means the default
// location) and then applies environment overrides. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (Settings, error) {
	var s Settings
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, DefaultFileName)
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			if explicit || !os.IsNotExist(err) {
				return s, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			s.Seen = true
		}
	}
	s.applyEnv(os.Getenv)
	return s, nil
}

// applyEnv overlays FLOWSYNC_* variables onto the loaded values.
func (s *Settings) applyEnv(getenv func(string) string) {
	setStr := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst **bool) {
		if v := getenv(EnvPrefix + key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = &b
			}
		}
	}
	setStr("URL", &s.Web.URL)
	setStr("TOKEN", &s.Web.Token)
	setStr("PROJECT", &s.Ingest.Project)
	setStr("OPERATOR", &s.Ingest.Operator)
	setBool("REGISTER", &s.Ingest.Register)
	setBool("UPDATE", &s.Ingest.Update)
	setBool("ANALYZE_ADAPTERS", &s.Ingest.AnalyzeAdapters)
	setBool("POST_ADAPTERS", &s.Ingest.PostAdapters)
	setBool("SKIP_IF_STATUS_FINAL", &s.Ingest.SkipIfStatusFinal)

	if v := getenv(EnvPrefix + "THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.Threads = n
		}
	}
	if v := getenv(EnvPrefix + "SAMPLE_READS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.Ingest.SampleReads = n
		}
	}
	if v := getenv(EnvPrefix + "MIN_INDEX_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			s.Ingest.MinIndexFraction = f
		}
	}
}

// Enabled resolves a tri-state boolean key against its built-in default.
func Enabled(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
