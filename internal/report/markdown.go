// Package report renders dashboards and position histories as Markdown.
package report

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/events"
	"github.com/mtlprog/fundtrack/internal/fund"
	"github.com/mtlprog/fundtrack/internal/history"
	"github.com/mtlprog/fundtrack/internal/projection"
)

// Summary renders the portfolio totals and breakdowns.
func Summary(d fund.Dashboard) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	s := d.Summary
	cur := displayCurrency(d.Rows)

	doc.H1(d.PortfolioName)
	if d.LastModified != "" {
		doc.PlainText(fmt.Sprintf("Last modified %s.", d.LastModified))
	}

	doc.Table(md.TableSet{
		Header:    []string{"Metric", "Value"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Rows: [][]string{
			{"Positions", fmt.Sprint(s.PositionCount)},
			{"Invested", domain.FormatMoney(s.TotalInvested, cur)},
			{"Current value", domain.FormatMoney(s.TotalCurrentValue, cur)},
			{"Profit", domain.FormatMoney(s.Profit, cur)},
			{"Return", domain.FormatPercent(s.ProfitPercent)},
		},
	})

	if len(s.Sectors) > 0 {
		doc.H2("Sectors")
		doc.Table(md.TableSet{
			Header:    []string{"Category", "Value", "Share"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
			Rows: lo.Map(s.Sectors, func(sec fund.SectorShare, _ int) []string {
				return []string{sec.Category, domain.FormatMoney(sec.Value, cur), percent(sec.Percent)}
			}),
		})
	}

	if len(s.CurrencyExposure) > 0 {
		doc.H2("Currency exposure")
		doc.Table(md.TableSet{
			Header:    []string{"Currency", "Value", "Share"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
			Rows: lo.Map(s.CurrencyExposure, func(c fund.CurrencyShare, _ int) []string {
				return []string{c.Currency, c.Value.StringFixed(2), percent(c.Percent)}
			}),
		})
	}

	performers := func(title string, rs []fund.PositionReturn) {
		if len(rs) == 0 {
			return
		}
		doc.H2(title)
		doc.Table(md.TableSet{
			Header:    []string{"Fund", "ISIN", "Return"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
			Rows: lo.Map(rs, func(r fund.PositionReturn, _ int) []string {
				return []string{r.Name, r.ISIN, domain.FormatPercent(r.ReturnPercent)}
			}),
		})
	}
	performers("Top performers", s.TopPerformers)
	performers("Bottom performers", s.BottomPerformers)

	if len(d.Timeline) > 0 {
		doc.H2("Estimated growth")
		doc.Table(md.TableSet{
			Header:    []string{"Date", "Value"},
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Rows: lo.Map(d.Timeline, func(p history.TimelinePoint, _ int) []string {
				return []string{p.Date.Format("2006-01-02"), domain.FormatMoney(p.Value, cur)}
			}),
		})
		doc.PlainText(md.Italic("Estimated from purchase dates and current values, not from observed prices."))
	}
	return doc.String()
}

// Positions renders one row per position.
func Positions(d fund.Dashboard) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(fmt.Sprintf("Positions of %s", d.PortfolioName))
	if len(d.Rows) == 0 {
		doc.PlainText("No positions yet.")
		return doc.String()
	}

	doc.Table(md.TableSet{
		Header: []string{"ISIN", "Fund", "Category", "Shares", "NAV", "Value", "Profit", "Return", "Weight", "Updated"},
		Alignment: []md.TableAlignment{
			md.AlignLeft, md.AlignLeft, md.AlignLeft,
			md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight,
			md.AlignLeft,
		},
		Rows: lo.Map(d.Rows, func(r fund.Row, _ int) []string {
			p := r.Position
			return []string{
				p.ISIN, p.Name, p.Category,
				p.Shares.String(),
				domain.FormatMoney(p.CurrentNAV, p.Currency),
				domain.FormatMoney(r.Value, p.Currency),
				domain.FormatMoney(r.Profit, p.Currency),
				domain.FormatPercent(r.ReturnPercent),
				percent(r.Weight),
				lo.Ternary(p.LastUpdated == "", "never", p.LastUpdated),
			}
		}),
	})
	return doc.String()
}

// History renders the derived valuation history of one position.
func History(p domain.Position) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(lo.Ternary(p.Name == "", p.ISIN, p.Name+" ("+p.ISIN+")"))

	points := history.ForPosition(p)
	if len(points) == 0 {
		doc.PlainText("No valuation history. Refresh the position to fetch one.")
		return doc.String()
	}

	doc.Table(md.TableSet{
		Header:    []string{"Date", "NAV", "Value", "YTD"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Rows: lo.Map(points, func(h domain.HistoryPoint, _ int) []string {
			return []string{
				h.Date,
				domain.FormatMoney(h.NAV, p.Currency),
				domain.FormatMoney(h.Value, p.Currency),
				domain.FormatPercent(h.YTDPercent),
			}
		}),
	})
	return doc.String()
}

// Projection renders the projected curve followed by the disclaimer.
func Projection(d fund.Dashboard, rate decimal.Decimal) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	cur := displayCurrency(d.Rows)

	doc.H1(fmt.Sprintf("Projection at %s per year", percent(rate.Mul(decimal.NewFromInt(100)))))
	doc.Table(md.TableSet{
		Header:    []string{"Period", "Value"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Rows: lo.Map(d.Projection, func(p projection.Point, _ int) []string {
			return []string{p.Label, domain.FormatMoney(p.Value, cur)}
		}),
	})
	doc.Blockquote(projection.Disclaimer)
	return doc.String()
}

// Events renders event log entries, newest first.
func Events(entries []events.Entry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Events")
	if len(entries) == 0 {
		doc.PlainText("No events.")
		return doc.String()
	}
	doc.Table(md.TableSet{
		Header:    []string{"Time", "Level", "Message"},
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Rows: lo.Map(entries, func(e events.Entry, _ int) []string {
			return []string{e.Time.Format("2006-01-02 15:04:05"), string(e.Level), e.Message}
		}),
	})
	return doc.String()
}

// displayCurrency is the currency shared by every row, or "" for mixed portfolios.
func displayCurrency(rows []fund.Row) string {
	codes := lo.Uniq(lo.Map(rows, func(r fund.Row, _ int) string {
		return strings.ToUpper(strings.TrimSpace(r.Position.Currency))
	}))
	if len(codes) == 1 {
		return codes[0]
	}
	return ""
}

func percent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
