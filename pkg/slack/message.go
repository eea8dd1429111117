package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var severityEmoji = map[string]string{
	"critical": ":rotating_light:",
	"warning":  ":warning:",
}

var severityLabel = map[string]string{
	"critical": "Critical",
	"warning":  "Warning",
}

func telemetryURL(vendor, dashboardURL string) string {
	return fmt.Sprintf("%s/telemetry/%s", dashboardURL, vendor)
}

// BuildAlertMessage creates Block Kit blocks for a telemetry threshold
// alert (spec.md §4.4 poller, supplemented beyond spec.md's own RPC
// surface with operator-facing Slack notification). When threadMarker
// is non-empty, a trailing context block stamps it into the message so
// a later FindMessageByFingerprint lookup can recover this message as
// the root of the day's alert thread (see Service.NotifyAlert) — every
// alert for the same day threads under the first one posted instead of
// flooding the channel with top-level messages.
func BuildAlertMessage(input AlertInput, dashboardURL string, threadMarker string) []goslack.Block {
	emoji := severityEmoji[input.Severity]
	if emoji == "" {
		emoji = ":bell:"
	}
	label := severityLabel[input.Severity]
	if label == "" {
		label = "Alert"
	}

	headerText := fmt.Sprintf("%s *%s — %s*\n\n%s", emoji, label, string(input.Vendor), truncateForSlack(input.Message))

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
	}

	url := telemetryURL(string(input.Vendor), dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Telemetry", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	if threadMarker != "" {
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("_ref: %s_", threadMarker), false, false),
		))
	}

	return blocks
}

func truncateForSlack(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBlockTextLength {
		return text
	}
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}
