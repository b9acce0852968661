package advisory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"TrendSentinel/internal/model"
)

// ChatCompleter is the subset of *openai.Client the advisor needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdvisor asks an OpenAI-compatible chat endpoint for commentary.
type OpenAIAdvisor struct {
	client ChatCompleter
	model  string
}

// NewOpenAIAdvisor creates an advisor. baseURL may point at any
// OpenAI-compatible gateway; empty keeps the official endpoint.
func NewOpenAIAdvisor(apiKey, baseURL, model, proxyURL string) *OpenAIAdvisor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			cfg.HTTPClient = &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(u)}}
		}
	}
	return &OpenAIAdvisor{client: openai.NewClientWithConfig(cfg), model: model}
}

// NewOpenAIAdvisorWithClient wires a custom completer, mainly for tests.
func NewOpenAIAdvisorWithClient(c ChatCompleter, model string) *OpenAIAdvisor {
	return &OpenAIAdvisor{client: c, model: model}
}

func (a *OpenAIAdvisor) Name() string { return "openai" }

func (a *OpenAIAdvisor) Advise(ctx context.Context, r model.TrendAnalysisResult) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(r)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

const systemPrompt = `你是一名A股技术分析助理。用户会给出量化引擎已经定稿的分析结果。
请用不超过150字的中文点评主要风险与关注点。不要给出新的评分、买卖建议或价位，量化结论以引擎为准。`

// BuildPrompt renders the read-only facts an advisor may comment on.
func BuildPrompt(r model.TrendAnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "标的: %s %s\n", r.Symbol, r.Name)
	fmt.Fprintf(&b, "日期: %s", r.AsOf.Format("2006-01-02"))
	if r.Provisional {
		b.WriteString(" (盘中)")
	}
	fmt.Fprintf(&b, "\n价格: %.2f (%+.2f%%)\n", r.Price, r.ChangePct)
	fmt.Fprintf(&b, "市场环境: %s\n", r.Regime)
	fmt.Fprintf(&b, "评分: %.0f 结论: %s\n", r.Score, r.Recommendation)
	fmt.Fprintf(&b, "信号: 趋势%s 量能%s MACD%s RSI%s KDJ%s\n",
		r.Signals.Trend, r.Signals.Volume, r.Signals.MACD, r.Signals.RSI, r.Signals.KDJ)
	for _, a := range r.Adjustments {
		fmt.Fprintf(&b, "修正: %s %+.0f %s\n", a.Name, a.Points, a.Reason)
	}
	if r.Halted {
		fmt.Fprintf(&b, "暂停交易: %s\n", strings.Join(r.HaltReasons, "；"))
	} else if r.StopLoss.Binding > 0 {
		fmt.Fprintf(&b, "止损: %.2f 短线目标: %.2f 仓位: %.0f%%\n",
			r.StopLoss.Binding, r.TakeProfit.Tranches[0].Price, r.Position.Suggested)
	}
	return b.String()
}
