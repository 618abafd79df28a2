// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/bndkit/bndkit/internal/issue"
)

const (
	// SettingsFileName is the name of the settings file in the settings directory.
	SettingsFileName = "settings.json"
	// SettingsDirEnv overrides the settings directory.
	SettingsDirEnv = "BND_SETTINGS_DIR"
	// GlobalEnvPrefix prefixes environment overrides of map entries.
	GlobalEnvPrefix = "BND_GLOBAL_"

	keyDelimiter  = "::"
	mapKey        = "map"
	publicKeyKey  = "publicKey"
	privateKeyKey = "privateKey"

	// maxSettingsSize bounds the settings file read into memory.
	maxSettingsSize = 1 << 20
)

//go:embed settings_schema.cue
var settingsSchema string

// ErrInvalidSettings is wrapped by every settings load failure.
var ErrInvalidSettings = errors.New("invalid settings")

type (
	// LoadOptions defines explicit settings loading inputs.
	LoadOptions struct {
		// Dir overrides the settings directory when set.
		Dir string
	}

	// Settings is a read-only view of the user settings.
	Settings struct {
		mu   sync.Mutex
		v    *viper.Viper
		path string
	}
)

// Dir returns the settings directory: override, $BND_SETTINGS_DIR, else ~/.bnd.
func Dir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if d := os.Getenv(SettingsDirEnv); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".bnd"), nil
}

// Load reads the settings. A missing settings file yields empty settings.
func Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	dir, err := Dir(opts.Dir)
	if err != nil {
		return nil, err
	}
	s := newSettings()
	path := filepath.Join(dir, SettingsFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, settingsError(path, err)
	}
	if len(data) > maxSettingsSize {
		return nil, settingsError(path, fmt.Errorf("file size %d bytes exceeds maximum %d bytes", len(data), maxSettingsSize))
	}
	if err := loadCUEIntoViper(s.v, data, path); err != nil {
		return nil, settingsError(path, err)
	}
	s.path = path
	return s, nil
}

// Empty returns settings with no values.
func Empty() *Settings {
	return newSettings()
}

// FromMap returns settings holding the given map entries.
func FromMap(m map[string]string) *Settings {
	s := newSettings()
	entries := make(map[string]any, len(m))
	for k, v := range m {
		entries[k] = v
	}
	_ = s.v.MergeConfigMap(map[string]any{mapKey: entries}) //nolint:errcheck // merging a plain map cannot fail
	return s
}

func newSettings() *Settings {
	return &Settings{v: viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))}
}

func settingsError(path string, err error) error {
	return issue.About(issue.ScopeSettings, path).
		Doing("load").
		Hint("Check that the file is valid JSON",
			"publicKey and privateKey must be base64, map values must be strings").
		Guide(issue.SettingsLoadFailedId).
		Wrap(fmt.Errorf("%w: %w", ErrInvalidSettings, err)).
		Err()
}

// Path returns the file the settings were read from, or "" when none existed.
func (s *Settings) Path() string {
	return s.path
}

// Get returns a map entry. Names are case-insensitive.
func (s *Settings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	full := mapKey + keyDelimiter + key
	_ = s.v.BindEnv(full, EnvName(key)) //nolint:errcheck // BindEnv only fails without a key
	if !s.v.IsSet(full) {
		return "", false
	}
	return s.v.GetString(full), true
}

// Keys returns the names of the map entries, sorted.
func (s *Settings) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.ToLower(mapKey) + keyDelimiter
	var keys []string
	for _, k := range s.v.AllKeys() {
		// Bound but unset environment overrides are listed by AllKeys too.
		if name, ok := strings.CutPrefix(k, prefix); ok && s.v.IsSet(k) {
			keys = append(keys, name)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// PublicKey returns the decoded public key, or nil.
func (s *Settings) PublicKey() []byte {
	return s.key(publicKeyKey)
}

// PrivateKey returns the decoded private key, or nil.
func (s *Settings) PrivateKey() []byte {
	return s.key(privateKeyKey)
}

func (s *Settings) key(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.v.GetString(name)
	if raw == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	return b
}

// EnvName returns the environment variable overriding the map entry key.
func EnvName(key string) string {
	var sb strings.Builder
	sb.WriteString(GlobalEnvPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// loadCUEIntoViper compiles the settings file, validates it against
// #Settings and merges it into v.
func loadCUEIntoViper(v *viper.Viper, data []byte, path string) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(settingsSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile settings schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Settings"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, path)
	}

	var settingsMap map[string]any
	if err := unified.Decode(&settingsMap); err != nil {
		return formatCUEError(err, path)
	}
	if err := v.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}
	return nil
}

// formatCUEError prefixes each CUE error with the dotted path of the
// offending field.
func formatCUEError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		if field := strings.Join(cueerrors.Path(e), "."); field != "" && !strings.HasPrefix(msg, field) {
			msg = field + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", path, strings.Join(lines, "\n  "))
}
