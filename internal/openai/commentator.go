package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"portfolioPlot/internal/portfolio"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You write short captions for portfolio performance charts. You will receive the cumulative return of a weighted portfolio and of each holding over a date window.

Guidelines:
- One paragraph, at most four sentences
- State the portfolio's return over the window first
- Name the best and worst holdings with their returns
- Mention excluded tickers only if there are any
- No risk metrics (volatility, drawdown, Sharpe), no forecasts, no advice
- Plain text, no markdown`

type Commentator struct {
	cli   oa.Client
	model string
}

// NewCommentator builds a client for the given key. Extra options (base
// URL, retries) are applied after the key.
func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	client := oa.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	if model == "" {
		model = "gpt-4"
	}
	return &Commentator{cli: client, model: model}
}

// Caption asks the model for a one-paragraph description of the run.
func (c *Commentator) Caption(ctx context.Context, tr *portfolio.TickerReturns, pr *portfolio.PortfolioReturns, excluded []string) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(BuildPrompt(tr, pr, excluded)),
		},
		MaxTokens: oa.Int(300), // Telegram photo captions are capped at 1024 characters
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt lists the window, the portfolio return and every ticker's
// return, best first.
func BuildPrompt(tr *portfolio.TickerReturns, pr *portfolio.PortfolioReturns, excluded []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window: %s to %s (%d trading days)\n",
		pr.Dates[0].Format(portfolio.DayFormat), pr.Dates[len(pr.Dates)-1].Format(portfolio.DayFormat), len(pr.Dates))
	fmt.Fprintf(&b, "Portfolio cumulative return: %+.2f%%\n", (pr.Final()-1)*100)

	type row struct {
		ticker string
		ret    float64
	}
	rows := make([]row, 0, len(tr.Tickers))
	for _, t := range tr.Tickers {
		cum := tr.Cumulative[t]
		rows = append(rows, row{t, (cum[len(cum)-1] - 1) * 100})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ret > rows[j].ret })
	b.WriteString("Holdings:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s: %+.2f%%\n", r.ticker, r.ret)
	}
	if len(excluded) > 0 {
		fmt.Fprintf(&b, "Excluded from the portfolio: %s\n", strings.Join(excluded, ", "))
	}
	return b.String()
}
