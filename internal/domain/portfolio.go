package domain

// Portfolio is an agent's cash and share balance. Both are signed: cash may
// go negative within the borrow limit and stock within the short limit.
type Portfolio struct {
	Cash  int64 // cents
	Stock int64
}

// TotalValue returns cash + stock × mark, in cents.
func (p Portfolio) TotalValue(mark int64) int64 {
	return p.Cash + p.Stock*mark
}

// ROI returns the percentage return of the portfolio marked at mark against
// baseline. A non-positive baseline yields 0.
func (p Portfolio) ROI(baseline, mark int64) float64 {
	return Percent(p.TotalValue(mark)-baseline, baseline)
}
