// Package buildinfo holds build-time metadata injected at startup, kept apart
// from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not set at build time.
const UnknownValue = "unknown"

// Context carries the version and build date set through -ldflags.
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata. Empty values are reported as unknown.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the release version.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// String renders the metadata for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("infant-guard %s (built %s)", c.Version(), c.BuildDate())
}
