// discovery.go: Home Assistant MQTT auto-discovery.
// See: https://www.home-assistant.io/integrations/mqtt/#mqtt-discovery
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// Entity object IDs published for discovery.
const (
	EntityStatus    = "status"
	EntityAttention = "attention"
	EntityIntensity = "intensity"
	EntityCrying    = "crying"
)

const deviceIDPrefix = "infant_guard"

// idSanitizer replaces characters Home Assistant does not accept in IDs.
var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeID ensures the ID contains only valid characters for MQTT topics and HA entity IDs.
func SanitizeID(id string) string {
	sanitized := idSanitizer.ReplaceAllString(id, "_")
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "unknown"
	}
	return sanitized
}

// DiscoveryPayload represents a Home Assistant MQTT discovery message.
type DiscoveryPayload struct {
	Name              string           `json:"name"`
	UniqueID          string           `json:"unique_id"`
	StateTopic        string           `json:"state_topic"`
	ValueTemplate     string           `json:"value_template,omitempty"`
	PayloadOn         string           `json:"payload_on,omitempty"`
	PayloadOff        string           `json:"payload_off,omitempty"`
	DeviceClass       string           `json:"device_class,omitempty"`
	StateClass        string           `json:"state_class,omitempty"`
	Icon              string           `json:"icon,omitempty"`
	AvailabilityTopic string           `json:"availability_topic,omitempty"`
	Device            DiscoveryDevice  `json:"device"`
	Origin            *DiscoveryOrigin `json:"origin,omitempty"`
}

// DiscoveryDevice represents the device information in a discovery payload.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryOrigin identifies the software publishing the discovery message.
type DiscoveryOrigin struct {
	Name      string `json:"name"`
	SWVersion string `json:"sw_version,omitempty"`
}

// DiscoveryConfig holds configuration for generating discovery payloads.
type DiscoveryConfig struct {
	DiscoveryPrefix string // default: homeassistant
	NodeID          string
	Version         string
}

type discoveryEntity struct {
	component string // sensor or binary_sensor
	objectID  string
	payload   DiscoveryPayload
}

// PublishDiscovery publishes retained discovery configs for the baby monitor
// entities, all reading from the analysis topic.
func (p *VerdictPublisher) PublishDiscovery(ctx context.Context, cfg DiscoveryConfig) error {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	nodeID := SanitizeID(cfg.NodeID)
	log := GetLogger()
	log.Info("publishing Home Assistant discovery",
		logger.String("node", nodeID),
		logger.String("discovery_prefix", cfg.DiscoveryPrefix))

	for _, e := range p.discoveryEntities(nodeID, cfg.Version) {
		data, err := json.Marshal(e.payload)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery payload: %w", err)
		}
		topic := discoveryTopic(cfg.DiscoveryPrefix, e.component, nodeID, e.objectID)
		if err := p.client.PublishWithRetain(ctx, topic, string(data), true); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDiscovery clears the retained discovery configs.
func (p *VerdictPublisher) RemoveDiscovery(ctx context.Context, cfg DiscoveryConfig) error {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	nodeID := SanitizeID(cfg.NodeID)
	var errs []error
	for _, e := range p.discoveryEntities(nodeID, cfg.Version) {
		topic := discoveryTopic(cfg.DiscoveryPrefix, e.component, nodeID, e.objectID)
		if err := p.client.PublishWithRetain(ctx, topic, "", true); err != nil {
			GetLogger().Warn("failed to remove discovery entry",
				logger.String("topic", topic),
				logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func discoveryTopic(prefix, component, nodeID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s_%s/config", prefix, component, nodeID, nodeID, objectID)
}

func (p *VerdictPublisher) discoveryEntities(nodeID, version string) []discoveryEntity {
	device := DiscoveryDevice{
		Identifiers:  []string{deviceIDPrefix + "_" + nodeID},
		Name:         "Infant Guard " + nodeID,
		Manufacturer: "infant-guard",
		Model:        "Baby monitor",
		SWVersion:    version,
	}
	origin := &DiscoveryOrigin{Name: "infant-guard", SWVersion: version}
	state := p.Topic(TopicAnalysis)
	avail := p.Topic(TopicAvailability)

	entity := func(component, objectID, name string, fill func(*DiscoveryPayload)) discoveryEntity {
		pl := DiscoveryPayload{
			Name:              name,
			UniqueID:          fmt.Sprintf("%s_%s_%s", deviceIDPrefix, nodeID, objectID),
			StateTopic:        state,
			AvailabilityTopic: avail,
			Device:            device,
			Origin:            origin,
		}
		fill(&pl)
		return discoveryEntity{component: component, objectID: objectID, payload: pl}
	}

	return []discoveryEntity{
		entity("sensor", EntityStatus, "Baby status", func(pl *DiscoveryPayload) {
			pl.ValueTemplate = "{{ value_json.status }}"
			pl.Icon = "mdi:baby-face-outline"
		}),
		entity("binary_sensor", EntityAttention, "Needs attention", func(pl *DiscoveryPayload) {
			pl.ValueTemplate = "{{ 'ON' if value_json.needsAttention else 'OFF' }}"
			pl.PayloadOn = "ON"
			pl.PayloadOff = "OFF"
			pl.DeviceClass = "problem"
		}),
		entity("binary_sensor", EntityCrying, "Crying", func(pl *DiscoveryPayload) {
			pl.ValueTemplate = "{{ 'ON' if value_json.hasCrying else 'OFF' }}"
			pl.PayloadOn = "ON"
			pl.PayloadOff = "OFF"
			pl.DeviceClass = "sound"
		}),
		entity("sensor", EntityIntensity, "Sound intensity", func(pl *DiscoveryPayload) {
			pl.ValueTemplate = "{{ value_json.intensity }}"
			pl.StateClass = "measurement"
			pl.Icon = "mdi:volume-high"
		}),
	}
}
