package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"OdysseyFarmer/internal/model"
)

// HelpText lists the chat commands.
const HelpText = "Available commands:\n" +
	"• /status  worker state and balances\n" +
	"• /start   start with the configured defaults\n" +
	"• /stop    stop after the current action\n" +
	"• /logs    last 10 log entries"

// Escape makes s safe inside an HTML parse-mode message.
func Escape(s string) string { return html.EscapeString(s) }

// FormatStatus formats a status snapshot for display.
func FormatStatus(st model.Status) string {
	var b strings.Builder
	state := "⏸ idle"
	if st.Running {
		state = "▶️ running"
	}
	b.WriteString(fmt.Sprintf("🤖 <b>Worker</b> %s", state))
	if st.Mode != "" {
		b.WriteString(fmt.Sprintf(" | mode %s", st.Mode))
	}
	b.WriteString("\n")
	if st.RunID != "" {
		b.WriteString(fmt.Sprintf("run: <code>%s</code>\n", st.RunID))
	}
	if len(st.Actions) > 0 {
		b.WriteString(fmt.Sprintf("actions: %s\n", strings.Join(st.Actions, ", ")))
	}

	rpc := "✅"
	if !st.RPC.Matches() {
		rpc = "⚠️"
	}
	b.WriteString(fmt.Sprintf("rpc %s chain %d (expected %d) %s\n\n",
		rpc, st.RPC.ChainID, st.RPC.ExpectedChainID, Escape(st.RPC.Diag)))

	if len(st.Accounts) == 0 {
		b.WriteString("no accounts loaded\n")
	}
	for _, a := range st.Accounts {
		b.WriteString(fmt.Sprintf("<code>%s</code> %s ETH", ShortID(a.Identity), FormatEther(a.BalanceEth)))
		if a.Low {
			b.WriteString(" 🔻low")
		}
		if a.DailyTarget > 0 {
			b.WriteString(fmt.Sprintf(" | %d/day", a.DailyTarget))
		}
		if a.Err != "" {
			b.WriteString(fmt.Sprintf(" | ⚠️ %s", Escape(a.Err)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatEntry formats one log entry as a single line.
func FormatEntry(e model.LogEntry) string {
	var b strings.Builder
	b.WriteString(outcomeIcon(e.Outcome.Kind))
	b.WriteString(" ")
	if e.Account != "" {
		b.WriteString(fmt.Sprintf("<code>%s</code> ", ShortID(e.Account)))
	}
	b.WriteString("<b>" + Escape(e.Action) + "</b>")
	if e.Target != "" {
		b.WriteString(" " + Escape(e.Target))
	}
	b.WriteString(": " + Escape(e.Outcome.String()))
	return b.String()
}

// FormatLogs formats entries newest first.
func FormatLogs(entries []model.LogEntry) string {
	if len(entries) == 0 {
		return "log is empty"
	}
	var b strings.Builder
	b.WriteString("📜 <b>Recent log</b>\n\n")
	for _, e := range entries {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteString(" ")
		b.WriteString(FormatEntry(e))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatEther rounds a decimal ether string to 6 places. Unparsable input is
// returned unchanged.
func FormatEther(eth string) string {
	d, err := decimal.NewFromString(eth)
	if err != nil {
		return eth
	}
	return d.StringFixed(6)
}

// ShortID abbreviates an address as 0x1234…abcd.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}

func outcomeIcon(k model.OutcomeKind) string {
	switch k {
	case model.OutcomeSent:
		return "📤"
	case model.OutcomeConfirmed:
		return "✅"
	case model.OutcomeSkipped:
		return "⏭"
	case model.OutcomeFailed:
		return "❌"
	default:
		return "ℹ️"
	}
}
