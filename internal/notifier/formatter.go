package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"RobinhoodMCP/internal/recorder"
	"RobinhoodMCP/internal/session"
)

// FormatSessionAlert describes a session transition the operator should act on.
func FormatSessionAlert(from, to session.State, reason string, mfaAllowed bool) string {
	var b strings.Builder

	switch to {
	case session.StateChallengeBlocked:
		b.WriteString("🔐 <b>Robinhood verification required</b>\n\n")
		if mfaAllowed {
			b.WriteString("Reply <code>/mfa &lt;code&gt;</code> with the code Robinhood sent.\n")
		} else {
			b.WriteString("Approve the challenge in the Robinhood app and refresh the session cache.\n")
		}
	default:
		b.WriteString("⚠️ <b>Robinhood session lost</b>\n\n")
		b.WriteString("The next tool call will log in again.\n")
	}
	fmt.Fprintf(&b, "\n%s → %s (%s)\n", from, to, html.EscapeString(reason))
	fmt.Fprintf(&b, "<i>%s</i>", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}

// FormatStatus renders the session snapshot and recent call statistics.
func FormatStatus(snap session.Snapshot, stats []recorder.ToolStats) string {
	var b strings.Builder

	icon := "🔴"
	if snap.Authenticated {
		icon = "🟢"
	}
	fmt.Fprintf(&b, "%s <b>Session:</b> %s since %s\n", icon, snap.State, snap.Since.UTC().Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(&b, "Cache: %s | MFA fallback: %s\n", onOff(snap.CacheConfigured), onOff(snap.MFAAllowed))
	if snap.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", html.EscapeString(snap.LastError))
	}

	if len(stats) == 0 {
		b.WriteString("\nNo tool calls in the last 24h.")
		return b.String()
	}
	b.WriteString("\n📈 <b>Tool calls (24h):</b>\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "  %s: %d calls, %d failed, avg %.0fms\n",
			strings.TrimPrefix(s.Tool, "robinhood."), s.Calls, s.Failures, s.AvgMS)
	}
	return b.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
