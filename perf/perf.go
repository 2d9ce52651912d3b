// Package perf implements the metrics tracker: it
// ingests (timestamp, portfolio_value) at each session close and computes
// total/annual return, volatility, Sharpe/Sortino/Calmar/Omega, drawdown,
// alpha/beta and trade-level statistics. Grounded on the exact formulas of
// original_source/src/finance/metrics.rs.
package perf

import (
	"math"
	"time"
)

const tradingDaysPerYear = 252.0

// ValuePoint is one (timestamp, portfolio_value) sample.
type ValuePoint struct {
	Timestamp time.Time
	Value     float64
}

// Trade is one completed round-trip used for win-rate/profit-factor stats.
type Trade struct {
	PnL float64
}

// Tracker accumulates the value series and trade log for one simulation.
type Tracker struct {
	values []ValuePoint
	trades []Trade
}

// New returns an empty Tracker.
func New() *Tracker { return &Tracker{} }

// RecordValue ingests one session-close sample.
func (t *Tracker) RecordValue(ts time.Time, value float64) {
	t.values = append(t.values, ValuePoint{Timestamp: ts, Value: value})
}

// RecordTrade ingests one completed round-trip's realized P&L.
func (t *Tracker) RecordTrade(pnl float64) {
	t.trades = append(t.trades, Trade{PnL: pnl})
}

// dailyReturns computes r_t = v_t/v_{t-1} - 1 for each consecutive pair.
func (t *Tracker) dailyReturns() []float64 {
	if len(t.values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(t.values)-1)
	for i := 1; i < len(t.values); i++ {
		prev := t.values[i-1].Value
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, t.values[i].Value/prev-1)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 sample standard deviation, used for total
// volatility.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// downsideRisk is the population (n) standard deviation computed over
// negative returns only, matching original_source's downside_risk.
func downsideRisk(xs []float64) float64 {
	var negatives []float64
	for _, x := range xs {
		if x < 0 {
			negatives = append(negatives, x)
		}
	}
	if len(negatives) == 0 {
		return 0
	}
	m := mean(negatives)
	var sumSq float64
	for _, x := range negatives {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(negatives)))
}

// TotalReturn is v_last/v_first - 1.
func (t *Tracker) TotalReturn() float64 {
	if len(t.values) == 0 {
		return 0
	}
	first := t.values[0].Value
	last := t.values[len(t.values)-1].Value
	if first == 0 {
		return 0
	}
	return last/first - 1
}

// AnnualReturn annualizes TotalReturn over the number of elapsed trading
// days using the 252-day convention.
func (t *Tracker) AnnualReturn() float64 {
	n := len(t.values)
	if n < 2 {
		return 0
	}
	days := float64(n - 1)
	total := t.TotalReturn()
	return math.Pow(1+total, tradingDaysPerYear/days) - 1
}

// Volatility is the annualized sample standard deviation of daily returns.
func (t *Tracker) Volatility() float64 {
	return sampleStdDev(t.dailyReturns()) * math.Sqrt(tradingDaysPerYear)
}

// Sharpe is (mean - rf/252) / sigma_daily, annualized by sqrt(252).
func (t *Tracker) Sharpe(riskFreeAnnual float64) float64 {
	returns := t.dailyReturns()
	sigma := sampleStdDev(returns)
	if sigma == 0 {
		return 0
	}
	m := mean(returns)
	rfDaily := riskFreeAnnual / tradingDaysPerYear
	return (m - rfDaily) / sigma * math.Sqrt(tradingDaysPerYear)
}

// Sortino is Sharpe with downside-only volatility in the denominator.
func (t *Tracker) Sortino(riskFreeAnnual float64) float64 {
	returns := t.dailyReturns()
	downside := downsideRisk(returns)
	if downside == 0 {
		return 0
	}
	m := mean(returns)
	rfDaily := riskFreeAnnual / tradingDaysPerYear
	return (m - rfDaily) / downside * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown returns the peak-to-trough relative decline and its duration
// in calendar days.
func (t *Tracker) MaxDrawdown() (drawdown float64, duration time.Duration) {
	if len(t.values) == 0 {
		return 0, 0
	}
	peak := t.values[0].Value
	peakTime := t.values[0].Timestamp
	var maxDD float64
	var maxDur time.Duration
	for _, v := range t.values {
		if v.Value > peak {
			peak = v.Value
			peakTime = v.Timestamp
		}
		if peak == 0 {
			continue
		}
		dd := (peak - v.Value) / peak
		if dd > maxDD {
			maxDD = dd
			maxDur = v.Timestamp.Sub(peakTime)
		}
	}
	return maxDD, maxDur
}

// Calmar is AnnualReturn / MaxDrawdown.
func (t *Tracker) Calmar() float64 {
	dd, _ := t.MaxDrawdown()
	if dd == 0 {
		return 0
	}
	return t.AnnualReturn() / dd
}

// Omega is the ratio of summed gains to summed losses above/below a
// threshold of zero.
func (t *Tracker) Omega() float64 {
	var gains, losses float64
	for _, r := range t.dailyReturns() {
		if r > 0 {
			gains += r
		} else {
			losses += -r
		}
	}
	if losses == 0 {
		return 0
	}
	return gains / losses
}

// AlphaBeta regresses this tracker's daily returns on an equal-length
// benchmark return series via OLS: beta = cov(r,b)/var(b), alpha annualized
// as mean(r) - beta*mean(b), scaled by 252.
func (t *Tracker) AlphaBeta(benchmark []float64) (alpha, beta float64) {
	r := t.dailyReturns()
	if len(r) != len(benchmark) || len(r) == 0 {
		return 0, 0
	}
	mr := mean(r)
	mb := mean(benchmark)
	var cov, varB float64
	for i := range r {
		dr := r[i] - mr
		db := benchmark[i] - mb
		cov += dr * db
		varB += db * db
	}
	n := float64(len(r))
	cov /= n
	varB /= n
	if varB == 0 {
		return 0, 0
	}
	beta = cov / varB
	alpha = (mr - beta*mb) * tradingDaysPerYear
	return alpha, beta
}

// WinRate, AvgWin, AvgLoss, ProfitFactor are trade-level stats from the
// separate trade ingest path.
func (t *Tracker) WinRate() float64 {
	if len(t.trades) == 0 {
		return 0
	}
	wins := 0
	for _, tr := range t.trades {
		if tr.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(t.trades))
}

func (t *Tracker) AvgWin() float64 {
	var sum float64
	count := 0
	for _, tr := range t.trades {
		if tr.PnL > 0 {
			sum += tr.PnL
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func (t *Tracker) AvgLoss() float64 {
	var sum float64
	count := 0
	for _, tr := range t.trades {
		if tr.PnL < 0 {
			sum += tr.PnL
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func (t *Tracker) ProfitFactor() float64 {
	var grossProfit, grossLoss float64
	for _, tr := range t.trades {
		if tr.PnL > 0 {
			grossProfit += tr.PnL
		} else {
			grossLoss += -tr.PnL
		}
	}
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / grossLoss
}

// TradeCount is the number of recorded trades.
func (t *Tracker) TradeCount() int { return len(t.trades) }

// Performance is the emitted record
type Performance struct {
	Series        []ValuePoint
	DailyReturns  []float64
	TotalReturn   float64
	AnnualReturn  float64
	Volatility    float64
	Sharpe        float64
	Sortino       float64
	MaxDrawdown   float64
	DrawdownDur   time.Duration
	Calmar        float64
	Omega         float64
	WinRate       float64
	TradeCount    int
	Alpha         *float64
	Beta          *float64
	Cancelled     bool
}

// Snapshot builds a Performance record from accumulated state. benchmark may
// be nil to omit alpha/beta.
func (t *Tracker) Snapshot(riskFreeAnnual float64, benchmark []float64) Performance {
	dd, dur := t.MaxDrawdown()
	p := Performance{
		Series:       append([]ValuePoint(nil), t.values...),
		DailyReturns: t.dailyReturns(),
		TotalReturn:  t.TotalReturn(),
		AnnualReturn: t.AnnualReturn(),
		Volatility:   t.Volatility(),
		Sharpe:       t.Sharpe(riskFreeAnnual),
		Sortino:      t.Sortino(riskFreeAnnual),
		MaxDrawdown:  dd,
		DrawdownDur:  dur,
		Calmar:       t.Calmar(),
		Omega:        t.Omega(),
		WinRate:      t.WinRate(),
		TradeCount:   t.TradeCount(),
	}
	if benchmark != nil {
		a, b := t.AlphaBeta(benchmark)
		p.Alpha, p.Beta = &a, &b
	}
	return p
}
