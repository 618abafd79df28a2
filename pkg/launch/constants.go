// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/magiconair/properties"
)

const (
	// DefaultLauncherProperties is the archive path of the properties file in
	// an executable JAR.
	DefaultLauncherProperties = "launcher.properties"
	// LauncherPropertiesKey is the system property naming the properties file.
	LauncherPropertiesKey = "launcher.properties"

	KeyStorageDir         = "launch.storage.dir"
	KeyKeep               = "launch.keep"
	KeyTimeout            = "launch.timeout"
	KeyTrace              = "launch.trace"
	KeyServices           = "launch.services"
	KeyActivators         = "launch.activators"
	KeyBundles            = "launch.bundles"
	KeyName               = "launch.name"
	KeySystemPackages     = "launch.system.packages"
	KeySystemCapabilities = "launch.system.capabilities"
	KeyEmbedded           = "launch.embedded"
	KeyNoReferences       = "launch.noreferences"
)

var knownKeys = []string{
	KeyStorageDir, KeyKeep, KeyTimeout, KeyTrace, KeyServices, KeyActivators,
	KeyBundles, KeyName, KeySystemPackages, KeySystemCapabilities, KeyEmbedded,
	KeyNoReferences,
}

// Constants is the set of parameters the launcher reads at startup.
type Constants struct {
	// RunProperties are framework properties. Keys that collide with a
	// recognized launch key are dropped on Store.
	RunProperties      map[string]string
	StorageDir         string
	Keep               bool
	Trace              bool
	Timeout            time.Duration
	Services           bool
	Activators         []string
	Name               string
	SystemPackages     string
	SystemCapabilities string
	RunBundles         []string
	Embedded           bool
	NoReferences       bool
}

// Map renders the constants as launch properties. Empty optional values are
// omitted.
func (c *Constants) Map() map[string]string {
	m := make(map[string]string, len(c.RunProperties)+len(knownKeys))
	for k, v := range c.RunProperties {
		if !isKnownKey(k) {
			m[k] = v
		}
	}
	if c.StorageDir != "" {
		m[KeyStorageDir] = c.StorageDir
	}
	if c.Name != "" {
		m[KeyName] = c.Name
	}
	if c.SystemPackages != "" {
		m[KeySystemPackages] = c.SystemPackages
	}
	if c.SystemCapabilities != "" {
		m[KeySystemCapabilities] = c.SystemCapabilities
	}
	m[KeyKeep] = strconv.FormatBool(c.Keep)
	m[KeyTrace] = strconv.FormatBool(c.Trace)
	m[KeyServices] = strconv.FormatBool(c.Services)
	m[KeyEmbedded] = strconv.FormatBool(c.Embedded)
	m[KeyNoReferences] = strconv.FormatBool(c.NoReferences)
	m[KeyTimeout] = strconv.FormatInt(c.Timeout.Milliseconds(), 10)
	m[KeyActivators] = strings.Join(c.Activators, ",")
	m[KeyBundles] = strings.Join(c.RunBundles, ",")
	return m
}

// FromMap reads constants from launch properties.
func FromMap(m map[string]string) (*Constants, error) {
	c := &Constants{
		RunProperties:      make(map[string]string),
		StorageDir:         m[KeyStorageDir],
		Keep:               isTrue(m[KeyKeep]),
		Trace:              isTrue(m[KeyTrace]),
		Services:           isTrue(m[KeyServices]),
		Activators:         splitList(m[KeyActivators]),
		Name:               m[KeyName],
		SystemPackages:     m[KeySystemPackages],
		SystemCapabilities: m[KeySystemCapabilities],
		RunBundles:         splitList(m[KeyBundles]),
		Embedded:           isTrue(m[KeyEmbedded]),
		NoReferences:       isTrue(m[KeyNoReferences]),
	}
	if t := strings.TrimSpace(m[KeyTimeout]); t != "" {
		millis, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyTimeout, err)
		}
		c.Timeout = time.Duration(millis) * time.Millisecond
	}
	for k, v := range m {
		if !isKnownKey(k) {
			c.RunProperties[k] = v
		}
	}
	return c, nil
}

// Store writes the constants in properties-file syntax with sorted keys. A
// non-empty comment is written as a leading # line.
func (c *Constants) Store(w io.Writer, comment string) error {
	var sb strings.Builder
	if comment != "" {
		for line := range strings.Lines(comment) {
			sb.WriteString("#")
			sb.WriteString(strings.TrimRight(line, "\r\n"))
			sb.WriteString("\n")
		}
	}
	m := c.Map()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		sb.WriteString(escape(k, true))
		sb.WriteString("=")
		sb.WriteString(escape(m[k], false))
		sb.WriteString("\n")
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write launch properties: %w", err)
	}
	return nil
}

// Load parses constants written by Store or by hand.
func Load(r io.Reader) (*Constants, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read launch properties: %w", err)
	}
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse launch properties: %w", err)
	}
	return FromMap(p.Map())
}

// escape applies properties-file escaping. Characters outside ASCII in the
// basic multilingual plane are written as \uXXXX; others are kept as UTF-8.
func escape(s string, key bool) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r == ' ' && (key || i == 0):
			sb.WriteString(`\ `)
		case key && (r == '=' || r == ':'):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case (r == '#' || r == '!') && i == 0:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r < 0x20 || (r > 0x7e && r <= 0xffff):
			fmt.Fprintf(&sb, `\u%04X`, r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isKnownKey(k string) bool {
	return slices.Contains(knownKeys, k)
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func splitList(v string) []string {
	var out []string
	for _, e := range strings.Split(v, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
