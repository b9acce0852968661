package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"TrendSentinel/internal/model"
)

// Label functions cover every declared value. An empty value is an unset
// field; anything else undeclared is a programming error.
const unset = "未知"

func recLabel(r model.Recommendation) string {
	switch r {
	case model.RecStrongBuy:
		return "🟢 强烈买入"
	case model.RecBuy:
		return "🟢 买入"
	case model.RecHold:
		return "🟡 持有观望"
	case model.RecSell:
		return "🔴 卖出"
	case model.RecStrongSell:
		return "🔴 强烈卖出"
	case "":
		return unset
	default:
		panic(unknownLabel("recommendation", r))
	}
}

func regimeLabel(r model.MarketRegime) string {
	switch r {
	case model.RegimeBull:
		return "牛市"
	case model.RegimeBear:
		return "熊市"
	case model.RegimeRange:
		return "震荡"
	case "":
		return unset
	default:
		panic(unknownLabel("regime", r))
	}
}

func horizonLabel(h model.Horizon) string {
	switch h {
	case model.HorizonIntraday:
		return "日内"
	case model.HorizonShort:
		return "短线"
	case model.HorizonMedium:
		return "中线"
	case "":
		return unset
	default:
		panic(unknownLabel("horizon", h))
	}
}

func trendLabel(t model.TrendStatus) string {
	switch t {
	case model.TrendStrongUp:
		return "强势多头"
	case model.TrendUp:
		return "多头排列"
	case model.TrendWeakUp:
		return "弱势多头"
	case model.TrendFlat:
		return "盘整"
	case model.TrendWeakDown:
		return "弱势空头"
	case model.TrendDown:
		return "空头排列"
	case model.TrendStrongDown:
		return "强势空头"
	case model.TrendUnknown, "":
		return unset
	default:
		panic(unknownLabel("trend", t))
	}
}

func dimensionLabel(d model.Dimension) string {
	switch d {
	case model.DimTrend:
		return "趋势"
	case model.DimBias:
		return "乖离"
	case model.DimVolume:
		return "量能"
	case model.DimSupport:
		return "支撑"
	case model.DimMACD:
		return "MACD"
	case model.DimRSI:
		return "RSI"
	case model.DimKDJ:
		return "KDJ"
	case "":
		return unset
	default:
		panic(unknownLabel("dimension", d))
	}
}

func unknownLabel(family string, v interface{}) string {
	return fmt.Sprintf("notifier: unknown %s %q", family, v)
}

// FailureEntry is one symbol that could not be analysed in a batch.
type FailureEntry struct {
	Symbol    string
	Error     string
	Providers []string
}

func price(v float64) string {
	if v <= 0 {
		return "—"
	}
	return humanize.CommafWithDigits(v, 2)
}

// FormatReport renders one analysis result as a Telegram HTML message.
// Any zero or missing field is rendered as a placeholder.
func FormatReport(r *model.TrendAnalysisResult) string {
	if r == nil {
		return "⚠️ 无分析结果"
	}
	var b strings.Builder

	title := html.EscapeString(r.Symbol)
	if r.Name != "" {
		title = html.EscapeString(r.Name) + " (" + title + ")"
	}
	date := "—"
	if !r.AsOf.IsZero() {
		date = r.AsOf.Format("2006-01-02")
	}
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s", title, date))
	if r.Provisional {
		b.WriteString(" (盘中)")
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("现价: %s (%+.2f%%)\n", price(r.Price), r.ChangePct))
	b.WriteString(fmt.Sprintf("大盘: %s | 周期: %s\n", regimeLabel(r.Regime), horizonLabel(r.Horizon)))
	b.WriteString(fmt.Sprintf("趋势: %s (强度 %.0f)\n", trendLabel(r.Signals.Trend), r.Signals.TrendStrength))
	switch l := r.Limit; {
	case l.Up && l.Consecutive >= 2:
		b.WriteString(fmt.Sprintf("🟢 涨停板 (连%d板)\n", l.Consecutive))
	case l.Up:
		b.WriteString("🟢 涨停封板\n")
	case l.Down:
		b.WriteString("🔴 跌停板\n")
	}
	if len(r.Resonance) > 0 {
		b.WriteString("共振: " + html.EscapeString(strings.Join(r.Resonance, " + ")) + "\n")
	}
	b.WriteString("\n")

	if len(r.Dimensions) > 0 {
		b.WriteString("📈 <b>评分明细:</b>\n")
		for _, d := range r.Dimensions {
			b.WriteString(fmt.Sprintf("  %s: %.0f/%.0f %s\n",
				dimensionLabel(d.Dimension), d.Weighted, d.Weight, html.EscapeString(d.Commentary)))
		}
	}
	for _, a := range r.Adjustments {
		b.WriteString(fmt.Sprintf("  %s: %+.0f %s\n", html.EscapeString(a.Name), a.Points, html.EscapeString(a.Reason)))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  综合评分: <b>%.0f</b> → %s\n\n", r.Score, recLabel(r.Recommendation)))

	for _, w := range r.Warnings {
		b.WriteString("⚠️ " + html.EscapeString(w) + "\n")
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
	}

	if r.Halted {
		b.WriteString("⛔ <b>风控熔断:</b>\n")
		for _, reason := range r.HaltReasons {
			b.WriteString("  • " + html.EscapeString(reason) + "\n")
		}
		b.WriteString("\n")
	} else {
		sl := r.StopLoss
		b.WriteString("🛡 <b>止损:</b>\n")
		b.WriteString(fmt.Sprintf("  日内 %s | 短线 %s | 中线 %s\n", price(sl.Intraday), price(sl.Short), price(sl.Medium)))
		b.WriteString(fmt.Sprintf("  执行止损: <b>%s</b>\n", price(sl.Binding)))

		b.WriteString("🎯 <b>止盈:</b>\n")
		for _, t := range r.TakeProfit.Tranches {
			if t.Price <= 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s %s (%.0f%%)\n", html.EscapeString(t.Label), price(t.Price), t.Fraction*100))
		}
		if r.RiskReward > 0 {
			b.WriteString(fmt.Sprintf("  盈亏比: %.2f %s\n", r.RiskReward, html.EscapeString(r.RiskVerdict)))
		}

		p := r.Position
		b.WriteString(fmt.Sprintf("\n💰 <b>仓位:</b> 上限 %.0f%% | 建议 %.0f%%", p.Position, p.Suggested))
		if p.Amount > 0 {
			b.WriteString(fmt.Sprintf(" (¥%s)", humanize.Commaf(p.Amount)))
		}
		b.WriteString("\n")
	}

	if len(r.Missing) > 0 {
		keys := make([]string, 0, len(r.Missing))
		for k := range r.Missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n⚠️ 缺失数据: " + html.EscapeString(strings.Join(keys, ", ")) + "\n")
	}

	if r.Summary != "" {
		b.WriteString("\n" + html.EscapeString(r.Summary) + "\n")
	}
	if r.Advisory != "" {
		b.WriteString("\n🤖 <b>AI 点评:</b>\n" + html.EscapeString(r.Advisory) + "\n")
	}
	return b.String()
}

// FormatBatchSummary renders the overview of a batch run, one line per symbol.
func FormatBatchSummary(runID string, results []*model.TrendAnalysisResult, failures []FailureEntry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>TrendSentinel 日报</b> | %s\n", time.Now().Format("2006-01-02")))
	if runID != "" {
		b.WriteString(fmt.Sprintf("<code>%s</code>\n", html.EscapeString(runID)))
	}
	b.WriteString("\n")

	sorted := make([]*model.TrendAnalysisResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	for _, r := range sorted {
		name := r.Symbol
		if r.Name != "" {
			name = r.Name
		}
		b.WriteString(fmt.Sprintf("%s %s: %.0f分 %s\n",
			recLabel(r.Recommendation), html.EscapeString(name), r.Score, price(r.Price)))
	}
	for _, f := range failures {
		b.WriteString(FormatFailure(f))
	}
	b.WriteString(fmt.Sprintf("\n成功 %d | 失败 %d\n", len(sorted), len(failures)))
	return b.String()
}

// FormatFailure renders one failed symbol line.
func FormatFailure(f FailureEntry) string {
	line := fmt.Sprintf("❌ %s: %s", html.EscapeString(f.Symbol), html.EscapeString(f.Error))
	if len(f.Providers) > 0 {
		line += fmt.Sprintf(" [%s]", html.EscapeString(strings.Join(f.Providers, ", ")))
	}
	return line + "\n"
}

// FormatCapitalStatus renders the capital state for display.
func FormatCapitalStatus(state model.CapitalState) string {
	var b strings.Builder
	b.WriteString("📦 <b>资金状态</b>\n\n")
	b.WriteString(fmt.Sprintf("总资金: ¥%s\n", humanize.Commaf(state.TotalCapital.InexactFloat64())))
	b.WriteString(fmt.Sprintf("仓位上限: %.0f%%\n", state.MaxExposure))

	symbols := make([]string, 0, len(state.Allocations))
	for s := range state.Allocations {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var allocated float64
	for _, s := range symbols {
		a := state.Allocations[s]
		allocated += a.Amount.InexactFloat64()
		b.WriteString(fmt.Sprintf("  %s: ¥%s (%.1f%%)\n", html.EscapeString(s), humanize.Commaf(a.Amount.InexactFloat64()), a.Pct))
	}
	b.WriteString(fmt.Sprintf("已分配: ¥%s\n", humanize.Commaf(allocated)))
	if !state.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("更新时间: %s\n", state.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatWatchlist renders the configured symbols.
func FormatWatchlist(symbols []string) string {
	if len(symbols) == 0 {
		return "自选股列表为空"
	}
	return "📌 <b>自选股</b>\n" + html.EscapeString(strings.Join(symbols, "\n"))
}
