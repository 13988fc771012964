package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// sender is the part of the shoutrrr router used here.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// Creates a single sender for multiple URLs.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	types   map[Type]bool
	sender  sender
	timeout time.Duration
}

// NewShoutrrrProvider creates a provider; supportedTypes defaults to all types.
func NewShoutrrrProvider(name string, enabled bool, urls []string, supportedTypes []Type, timeout time.Duration) *ShoutrrrProvider {
	sp := &ShoutrrrProvider{
		name:    strings.TrimSpace(name),
		enabled: enabled,
		urls:    slices.Clone(urls),
		types:   map[Type]bool{},
		timeout: timeout,
	}
	if sp.name == "" {
		sp.name = "shoutrrr"
	}
	if len(supportedTypes) == 0 {
		supportedTypes = []Type{TypeAttention, TypeInfo, TypeError, TypeSystem}
	}
	for _, t := range supportedTypes {
		sp.types[t] = true
	}
	return sp
}

func (s *ShoutrrrProvider) GetName() string          { return s.name }
func (s *ShoutrrrProvider) IsEnabled() bool          { return s.enabled }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return s.types[t] }

// ValidateConfig parses the URLs and builds the sender.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return fmt.Errorf("at least one URL is required")
	}
	router, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return sanitizeError(err)
	}
	if s.timeout > 0 {
		router.Timeout = s.timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))
	s.sender = router
	return nil
}

// Send delivers n to every configured URL; the router applies its own timeout.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if s.sender == nil {
		return fmt.Errorf("shoutrrr sender not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	params.SetTitle(n.DisplayTitle())

	for _, e := range s.sender.Send(n.Message, &params) {
		if e != nil {
			return sanitizeError(e)
		}
	}
	return nil
}

var urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s"']+`)

// sanitizeError strips credentials and paths from URLs quoted in err.
func sanitizeError(err error) error {
	msg := urlPattern.ReplaceAllStringFunc(err.Error(), func(raw string) string {
		u, perr := url.Parse(raw)
		if perr != nil || u.Host == "" {
			return "[url]"
		}
		return u.Scheme + "://" + u.Hostname() + "/[redacted]"
	})
	return fmt.Errorf("%s", msg)
}
