package strategy

import (
	"fmt"
	"strings"

	"TrendSentinel/internal/model"
)

func recText(r model.Recommendation) string {
	switch r {
	case model.RecStrongBuy:
		return "强烈买入"
	case model.RecBuy:
		return "买入"
	case model.RecHold:
		return "观望"
	case model.RecSell:
		return "卖出"
	case model.RecStrongSell:
		return "强烈卖出"
	case "":
		return "未评级"
	default:
		panic(unknownStatus("recommendation", r))
	}
}

func regimeText(r model.MarketRegime) string {
	switch r {
	case model.RegimeBull:
		return "牛市"
	case model.RegimeBear:
		return "熊市"
	case model.RegimeRange, "":
		return "震荡市"
	default:
		panic(unknownStatus("regime", r))
	}
}

// Summarize writes the plain-language verdict. It reads only finished fields.
func Summarize(c *Context) {
	r := &c.Result
	var b strings.Builder
	name := r.Symbol
	if r.Name != "" {
		name = fmt.Sprintf("%s(%s)", r.Name, r.Symbol)
	}
	fmt.Fprintf(&b, "%s %s环境下评分%.0f，建议%s。", name, regimeText(r.Regime), r.Score, recText(r.Recommendation))

	if r.Halted {
		fmt.Fprintf(&b, "暂停交易：%s。", strings.Join(r.HaltReasons, "；"))
		r.Summary = b.String()
		return
	}
	fmt.Fprintf(&b, "趋势%s(强度%.0f)", r.Signals.Trend, r.Signals.TrendStrength)
	if r.Valuation != "" {
		fmt.Fprintf(&b, "，估值%s", r.Valuation)
	}
	b.WriteString("。")
	for _, w := range r.Warnings {
		b.WriteString(w + "。")
	}
	if r.StopLoss.Binding > 0 {
		fmt.Fprintf(&b, "止损%.2f", r.StopLoss.Binding)
		if t := r.TakeProfit.Tranches[0].Price; t > 0 {
			fmt.Fprintf(&b, "，目标%.2f，盈亏比%.1f(%s)", t, r.RiskReward, r.RiskVerdict)
		}
		b.WriteString("。")
	}
	if r.Position.Position > 0 {
		fmt.Fprintf(&b, "仓位上限%.0f%%，建议%.0f%%。", r.Position.Position, r.Position.Suggested)
	} else {
		b.WriteString("暂不建仓。")
	}
	if r.Provisional {
		b.WriteString("(盘中数据)")
	}
	r.Summary = b.String()
}
