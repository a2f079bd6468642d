// Package cost 提供模拟器可选的交易成本模型
package cost

// Model 交易成本模型接口
type Model interface {
	// Fee 计算一笔交易金额对应的费用
	Fee(tradeValue float64) float64
}

// CommissionModel 按佣金率计费, 设最低佣金
type CommissionModel struct {
	Rate float64 // 佣金率
	Min  float64 // 最低佣金
}

// NewCommissionModel 创建佣金模型
func NewCommissionModel(rate, min float64) *CommissionModel {
	return &CommissionModel{Rate: rate, Min: min}
}

// Fee 计算交易费用
func (m *CommissionModel) Fee(tradeValue float64) float64 {
	if tradeValue <= 0 {
		return 0
	}
	fee := tradeValue * m.Rate
	if fee < m.Min {
		fee = m.Min
	}
	return fee
}

// ZeroModel 零成本模型 (默认: 原始回测不计手续费)
type ZeroModel struct{}

// Fee 恒为0
func (ZeroModel) Fee(float64) float64 {
	return 0
}
