// Package notification delivers caregiver alerts through push services.
package notification

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jingnanl/infant-guard/internal/judge"
)

// Type represents the category of a notification
type Type string

const (
	// TypeAttention asks a caregiver to check on the baby
	TypeAttention Type = "attention"
	// TypeInfo is informational
	TypeInfo Type = "info"
	// TypeError reports a failing component
	TypeError Type = "error"
	// TypeSystem reports lifecycle events such as startup
	TypeSystem Type = "system"
)

// Priority represents the urgency level of a notification
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Notification is a single notification event.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Priority  Priority       `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a notification with a unique ID and timestamp.
func NewNotification(notifType Type, priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Type:      notifType,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// WithComponent sets the component field and returns the notification for chaining.
func (n *Notification) WithComponent(component string) *Notification {
	n.Component = component
	return n
}

// WithMetadata merges md into the metadata.
func (n *Notification) WithMetadata(md map[string]any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any, len(md))
	}
	maps.Copy(n.Metadata, md)
	return n
}

// DisplayTitle returns the title, falling back to the title-cased type.
func (n *Notification) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return cases.Title(language.English).String(string(n.Type))
}

// FromVerdict builds the attention alert for v.
func FromVerdict(v *judge.Verdict) *Notification {
	status := cases.Title(language.English).String(string(v.Status))
	priority := PriorityHigh
	if v.Status == judge.StatusCrying || (v.Audio.HasCrying && v.Audio.Intensity > 0.8) {
		priority = PriorityCritical
	}

	message := v.Analysis
	if message == "" {
		message = fmt.Sprintf("Sound intensity %.2f", v.Audio.Intensity)
	}

	return NewNotification(TypeAttention, priority, "Baby needs attention: "+status, message).
		WithComponent("judge").
		WithMetadata(map[string]any{
			"status":    string(v.Status),
			"crying":    v.Audio.HasCrying,
			"intensity": v.Audio.Intensity,
			"image_key": v.ImageKey,
			"audio_key": v.AudioKey,
		})
}
