package notifier

import (
	"fmt"
	"strings"

	"TrendSentinel/internal/model"
)

func signalIcon(s model.Signal) string {
	switch s {
	case model.SignalLong:
		return "🟢"
	case model.SignalShort:
		return "🔴"
	default:
		return "⚪"
	}
}

func voteLabel(v int8) string {
	switch v {
	case 1:
		return "above"
	case -1:
		return "below"
	default:
		return "at"
	}
}

// FormatSignalReport formats the latest bar of an evaluation into a Telegram message.
func FormatSignalReport(ev *model.Evaluation) string {
	i := ev.Latest()
	if i < 0 {
		return fmt.Sprintf("📊 <b>%s</b> | no bars evaluated", ev.Symbol)
	}
	bar := ev.Bars[i]
	votes := ev.Votes[i]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s %s</b> | %s\n\n", ev.Symbol, ev.Interval, bar.Time.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Close: %.2f\n", bar.Close))
	b.WriteString(fmt.Sprintf("SAR: %.2f (close %s, trend %s)\n", ev.SAR[i], voteLabel(votes.SAR), ev.Trend))
	b.WriteString(fmt.Sprintf("MA: %.2f (close %s)\n\n", ev.MA[i], voteLabel(votes.MA)))
	b.WriteString(fmt.Sprintf("%s <b>Signal:</b> %s\n", signalIcon(ev.Signals[i]), ev.Signals[i]))
	return b.String()
}

// FormatSignalChange formats a transition of the latest signal.
func FormatSignalChange(evt *model.SignalEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s signal change</b> | %s\n\n", signalIcon(evt.To), evt.Symbol, evt.BarTime.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s → <b>%s</b>\n", evt.From, evt.To))
	b.WriteString(fmt.Sprintf("Close: %.2f | SAR: %.2f | MA: %.2f\n", evt.Close, evt.SAR, evt.MA))
	b.WriteString(fmt.Sprintf("SAR trend: %s\n", evt.Trend))
	return b.String()
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "Available commands:\n• /signal latest signal report\n• /status scheduler status"
}
