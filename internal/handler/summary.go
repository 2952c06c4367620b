package handler

import (
	"context"
	"fmt"
	"strings"

	"timebank/internal/models"
	"timebank/pkg/duration"
)

func (h *Handler) summary(ctx context.Context, user *models.User, args []string) Reply {
	year, month, err := h.monthArg(args)
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	summary, err := h.services.Summaries.MonthlySummary(ctx, user.ID, year, month)
	if err != nil {
		return h.errorReply(user, "summary", err)
	}
	return textReply(formatSummary(summary))
}

// balance shows the banked hours carried into the month plus the month so far.
func (h *Handler) balance(ctx context.Context, user *models.User, args []string) Reply {
	year, month, err := h.monthArg(args)
	if err != nil {
		return textReply("❌ " + err.Error())
	}

	accumulated, err := h.services.Bank.AccumulatedBalance(ctx, user.ID, year, month)
	if err != nil {
		return h.errorReply(user, "balance", err)
	}

	summary, err := h.services.Summaries.MonthlySummary(ctx, user.ID, year, month)
	if err != nil {
		return h.errorReply(user, "balance", err)
	}

	entries, err := h.services.Bank.History(ctx, user.ID)
	if err != nil {
		return h.errorReply(user, "balance", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏦 Banked hours before %04d-%02d: %s\n", year, month, duration.FormatMinutes(accumulated))
	fmt.Fprintf(&b, "⚖️ This month so far: %s\n", summary.Saldo)
	fmt.Fprintf(&b, "📈 Projected: %s", duration.FormatMinutes(accumulated+summary.SaldoMinutes))

	if len(entries) > 0 {
		b.WriteString("\n\n🗂 Closed months:")
		for _, e := range entries {
			fmt.Fprintf(&b, "\n%s: %s", e.YearMonth, e.Saldo)
		}
	}

	return textReply(b.String())
}
