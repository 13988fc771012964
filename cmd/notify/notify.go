package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/notification"
)

// Command returns a cobra command that sends a test notification through the
// configured push providers.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		typ      string
		prio     string
		title    string
		message  string
		metadata []string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification",
		Long: `Send a test notification through the configured push providers.

Examples:
  # Basic notification
  infant-guard notify --title="Test" --message="Hello"

  # Attention alert with metadata
  infant-guard notify --type=attention --priority=critical --metadata="status=crying" --metadata="intensity=0.9"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ntype, err := parseType(typ)
			if err != nil {
				return err
			}
			nprio, err := parsePriority(prio)
			if err != nil {
				return err
			}
			md, err := parseMetadata(metadata)
			if err != nil {
				return err
			}

			service, err := notification.NewService(settings.Notification)
			if err != nil {
				return err
			}
			if !service.HasProviders() {
				return fmt.Errorf("no notification providers configured, set notification.enabled and notification.urls")
			}

			n := notification.NewNotification(ntype, nprio, title, message).
				WithComponent("cli").
				WithMetadata(md)
			if err := service.Notify(cmd.Context(), n); err != nil {
				return fmt.Errorf("failed to send notification: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification sent: id=%s type=%s priority=%s", n.ID, n.Type, n.Priority)
			if len(n.Metadata) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " metadata=%d_keys", len(n.Metadata))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "info", "Notification type (attention|info|error|system)")
	cmd.Flags().StringVar(&prio, "priority", "low", "Notification priority (critical|high|medium|low)")
	cmd.Flags().StringVar(&title, "title", "Test notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "This is a test notification from infant-guard", "Notification message")
	cmd.Flags().StringSliceVar(&metadata, "metadata", nil, "Metadata as key=value, repeatable")

	return cmd
}

func parseType(s string) (notification.Type, error) {
	switch t := notification.Type(s); t {
	case notification.TypeAttention, notification.TypeInfo, notification.TypeError, notification.TypeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("invalid type: %s", s)
	}
}

func parsePriority(s string) (notification.Priority, error) {
	switch p := notification.Priority(s); p {
	case notification.PriorityCritical, notification.PriorityHigh, notification.PriorityMedium, notification.PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority: %s", s)
	}
}

// parseMetadata reads key=value pairs. Values that parse as a number or a
// boolean keep that type.
func parseMetadata(pairs []string) (map[string]any, error) {
	md := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata format: %s (expected key=value)", kv)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if f, err := strconv.ParseFloat(value, 64); err == nil {
			md[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			md[key] = b
		} else {
			md[key] = value
		}
	}
	return md, nil
}
