package domain

// SummarySnapshot is the server-computed balance sheet.
type SummarySnapshot struct {
	TotalAssets      Amount `json:"total_assets"`
	TotalLiabilities Amount `json:"total_liabilities"`
	NetWorth         Amount `json:"net_worth"`
}

// MonthlySnapshot is the server-computed income and expense for one month.
type MonthlySnapshot struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	TotalIncome  Amount `json:"total_income"`
	TotalExpense Amount `json:"total_expense"`
}

// Balance is income minus expense for the month.
func (m MonthlySnapshot) Balance() Amount {
	return Amount{m.TotalIncome.Sub(m.TotalExpense.Decimal)}
}
