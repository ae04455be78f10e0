// 文件: pkg/settlement/model.go
// 结算单标准化记录
//
// 【数据来源】
// - 由外部解析层从每日结算单中抽取，本包只定义结构，不做格式解析
// - 三类记录: 每日权益 / 持仓快照 / 成交明细
// - 均以 (策略代码, 交易日) 为主键，持仓和成交额外带合约

package settlement

import (
	"errors"
	"strings"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	ErrEmptyBatch        = errors.New("settlement batch has no equity records")
	ErrUnknownDirection  = errors.New("unknown trade direction")
	ErrUnknownOffsetFlag = errors.New("unknown offset flag")
)

// =============================================================================
// 买卖方向 / 开平标志
// =============================================================================

// Direction 成交方向
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection 解析成交方向
//
// 结算单原文是 "买"/"卖"，这里一并兼容
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "买":
		return DirectionBuy, nil
	case "sell", "s", "卖":
		return DirectionSell, nil
	}
	return "", ErrUnknownDirection
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// OffsetFlag 开平标志
type OffsetFlag string

const (
	OffsetOpen  OffsetFlag = "open"
	OffsetClose OffsetFlag = "close"
)

// ParseOffsetFlag 解析开平标志 ("开仓"/"平仓" 同样接受)
func ParseOffsetFlag(s string) (OffsetFlag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "开仓", "开":
		return OffsetOpen, nil
	case "close", "平仓", "平", "平今", "平昨":
		return OffsetClose, nil
	}
	return "", ErrUnknownOffsetFlag
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (f *OffsetFlag) UnmarshalText(text []byte) error {
	v, err := ParseOffsetFlag(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// =============================================================================
// DailyEquity - 每日权益
// =============================================================================

// DailyEquity 一个策略在一个交易日的资金状况
//
// Equity = CurrentBalance + FloatingPnL
// RiskDegree = MarginUsed / Equity
type DailyEquity struct {
	StrategyCode    string  `json:"strategy_code"`
	TradeDate       string  `json:"trade_date"` // YYYY-MM-DD
	PrevBalance     float64 `json:"prev_balance"`
	DepositWithdraw float64 `json:"deposit_withdraw"` // 当日存取合计
	RealizedPnL     float64 `json:"realized_pnl"`
	Commission      float64 `json:"commission"`
	CurrentBalance  float64 `json:"current_balance"`
	FloatingPnL     float64 `json:"floating_pnl"`
	Equity          float64 `json:"equity"`
	MarginUsed      float64 `json:"margin_used"`
	AvailableFunds  float64 `json:"available_funds"`
	RiskDegree      float64 `json:"risk_degree"`
}

// =============================================================================
// Position - 持仓快照
// =============================================================================

// Position 某策略某日在某合约上的持仓
//
// 同一合约可能同时有多头和空头 (锁仓)
type Position struct {
	StrategyCode   string  `json:"strategy_code"`
	TradeDate      string  `json:"trade_date"`
	Contract       string  `json:"contract"` // 如 rb2505
	LongQty        int64   `json:"long_qty"`
	LongPrice      float64 `json:"long_price"`
	ShortQty       int64   `json:"short_qty"`
	ShortPrice     float64 `json:"short_price"`
	PrevSettlement float64 `json:"prev_settlement"` // 昨结算
	Settlement     float64 `json:"settlement"`      // 今结算
	FloatingPnL    float64 `json:"floating_pnl"`
	PositionValue  float64 `json:"position_value"` // 持仓市值
	Margin         float64 `json:"margin"`
	Exchange       string  `json:"exchange"`
	OpenDate       string  `json:"open_date,omitempty"`
}

// IsLong 是否持有多头
func (p *Position) IsLong() bool {
	return p.LongQty > 0
}

// IsShort 是否持有空头
func (p *Position) IsShort() bool {
	return p.ShortQty > 0
}

// =============================================================================
// Trade - 成交明细
// =============================================================================

// Trade 一笔成交
type Trade struct {
	StrategyCode string     `json:"strategy_code"`
	TradeDate    string     `json:"trade_date"`
	Contract     string     `json:"contract"`
	TradeID      string     `json:"trade_id"`
	TradeTime    string     `json:"trade_time"`
	Direction    Direction  `json:"direction"`
	OffsetFlag   OffsetFlag `json:"offset_flag"`
	Price        float64    `json:"price"`
	Quantity     int64      `json:"quantity"`
	Amount       float64    `json:"amount"` // 成交额
	Commission   float64    `json:"commission"`
	RealizedPnL  float64    `json:"realized_pnl"`
	Exchange     string     `json:"exchange"`
}

// IsOpen 是否为开仓成交
func (t *Trade) IsOpen() bool {
	return t.OffsetFlag == OffsetOpen
}

// ContractKey 成交所在的 (策略, 交易日, 合约)
func (t *Trade) ContractKey() ContractKey {
	return ContractKey{StrategyCode: t.StrategyCode, TradeDate: t.TradeDate, Contract: t.Contract}
}
