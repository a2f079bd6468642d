// Package ai 封装兼容OpenAI协议的投资分析助手
package ai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/etflab/etf-backtest/internal/portfolio"
)

const systemPrompt = "你是专业的投资分析AI，请用简明中文回答。"

// Advisor 投资分析助手
type Advisor struct {
	cli   oa.Client
	model string
}

// NewAdvisor 创建助手, baseURL指向任意兼容OpenAI协议的服务
func NewAdvisor(apiKey, baseURL, model string) (*Advisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Advisor{cli: oa.NewClient(opts...), model: model}, nil
}

// Chat 单轮问答
func (a *Advisor) Chat(ctx context.Context, prompt string) (string, error) {
	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: a.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExplainComparison 对再平衡对比结果做点评
func (a *Advisor) ExplainComparison(ctx context.Context, names map[string]string, cmp *portfolio.Comparison) (string, error) {
	var b strings.Builder
	b.WriteString("以下是一个组合回测的再平衡对比结果，请分析年度再平衡是否改善了该组合的风险收益特征，并给出简要建议。\n\n标的: ")
	for symbol, name := range names {
		fmt.Fprintf(&b, "%s(%s) ", name, symbol)
	}
	fmt.Fprintf(&b, "\n\n不再平衡: 总收益%.2f%% 年化%.2f%% 波动率%.2f%% 夏普%.2f 最大回撤%.2f%%\n",
		cmp.NoRebalance.TotalReturn, cmp.NoRebalance.AnnualReturn,
		cmp.NoRebalance.Volatility, cmp.NoRebalance.Sharpe, cmp.NoRebalance.MaxDrawdown)
	fmt.Fprintf(&b, "年度再平衡: 总收益%.2f%% 年化%.2f%% 波动率%.2f%% 夏普%.2f 最大回撤%.2f%%\n",
		cmp.Rebalance.TotalReturn, cmp.Rebalance.AnnualReturn,
		cmp.Rebalance.Volatility, cmp.Rebalance.Sharpe, cmp.Rebalance.MaxDrawdown)

	return a.Chat(ctx, b.String())
}
