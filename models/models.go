package models

import (
	"encoding/json"
	"time"
)

// Channel identifies a macro risk channel.
type Channel string

const (
	ChannelEquities Channel = "EQUITIES"
	ChannelCredit   Channel = "CREDIT"
	ChannelVol      Channel = "VOL"
	ChannelUSD      Channel = "USD"
	ChannelOil      Channel = "OIL"
)

// MacroMode is the discrete macro regime classification.
type MacroMode string

const (
	RiskOn  MacroMode = "RISK_ON"
	RiskOff MacroMode = "RISK_OFF"
	Mixed   MacroMode = "MIXED"
)

// Transition describes how the global score moved over the trailing
// ten trading sessions.
type Transition string

const (
	Improving     Transition = "IMPROVING"
	Stable        Transition = "STABLE"
	Deteriorating Transition = "DETERIORATING"
)

// ChannelConfig is the per-channel scoring configuration. It is loaded once
// per run and passed down by value; the engines never mutate it.
//
// ReasonLabels maps an achievable score value (formatted with strconv
// 'g' formatting, e.g. "1", "-0.5", "0.2") to a human-readable label.
// A nil label suppresses the reason for that score.
type ChannelConfig struct {
	Weight       float64            `yaml:"weight" validate:"gte=0"`
	Tickers      []string           `yaml:"tickers" validate:"min=1,dive,required"`
	ReasonLabels map[string]*string `yaml:"reason_labels"`
}

// ScoringConfig holds the active channel set for a scoring run.
// HistoryYears is how far back proxy series are fetched; the volatility
// fallback needs a full trailing year of rolling windows, so anything less
// than two years starves it.
type ScoringConfig struct {
	Channels     map[Channel]ChannelConfig `yaml:"channels" validate:"min=1,dive"`
	HistoryYears int                       `yaml:"history_years" default:"2" validate:"gte=1"`
}

// MacroScorePayload is the aggregate output of one scoring run. It is
// created fresh each run and persisted keyed by AsOf plus a latest pointer.
type MacroScorePayload struct {
	RunID         string              `json:"run_id"`
	AsOf          time.Time           `json:"as_of"`
	MacroMode     MacroMode           `json:"macro_mode"`
	GlobalScore   float64             `json:"global_score"`
	Confidence    float64             `json:"confidence"`
	Transition    Transition          `json:"transition"`
	ChannelScores map[Channel]float64 `json:"channel_scores"`
	Reasons       []string            `json:"reasons"`
}

// Position is a single holding inside a portfolio snapshot.
type Position struct {
	Ticker    string  `json:"ticker"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
}

// PortfolioSnapshot captures a portfolio's cash and holdings on a date.
// Snapshots are append-only and ordered by date.
type PortfolioSnapshot struct {
	Date        time.Time  `json:"date"`
	CashBalance float64    `json:"cash_balance"`
	Positions   []Position `json:"positions"`
}

// Portfolio is a portfolio record with its historical snapshots.
type Portfolio struct {
	ID          string              `json:"id"`
	CashBalance float64             `json:"cash_balance"`
	Snapshots   []PortfolioSnapshot `json:"snapshots"`
}

// ChannelExposure is the regression result of portfolio returns against one
// channel proxy. Valid is false when fewer than the minimum paired
// observations were available; Beta and RSquared are then meaningless and
// persisted as NULL.
type ChannelExposure struct {
	Proxy    string
	Beta     float64
	RSquared float64
	Valid    bool
}

type channelExposureJSON struct {
	Proxy    string   `json:"proxy"`
	Beta     *float64 `json:"beta"`
	RSquared *float64 `json:"r_squared"`
}

// MarshalJSON emits null beta and r_squared for invalid exposures so a
// failed fit can never be mistaken for a zero one.
func (e ChannelExposure) MarshalJSON() ([]byte, error) {
	out := channelExposureJSON{Proxy: e.Proxy}
	if e.Valid {
		out.Beta = &e.Beta
		out.RSquared = &e.RSquared
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the Valid flag from null fields.
func (e *ChannelExposure) UnmarshalJSON(data []byte) error {
	var in channelExposureJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = ChannelExposure{Proxy: in.Proxy}
	if in.Beta != nil && in.RSquared != nil {
		e.Beta = *in.Beta
		e.RSquared = *in.RSquared
		e.Valid = true
	}
	return nil
}

// ExposureReport is the full per-portfolio exposure run output.
type ExposureReport struct {
	RunID       string                      `json:"run_id"`
	PortfolioID string                      `json:"portfolio_id"`
	AsOf        time.Time                   `json:"as_of"`
	PeriodStart time.Time                   `json:"period_start"`
	TradingDays int                         `json:"trading_days"`
	Channels    map[Channel]ChannelExposure `json:"channels"`
}
