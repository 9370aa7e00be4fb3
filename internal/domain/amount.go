package domain

// Asset codes for the single traded pair. Quantities are always integer
// base units (drops for the base asset); prices are counter-asset base
// units per base-asset unit. Floating point never touches settlement-bound
// amounts.
const (
	BaseAsset    = "XRP"
	CounterAsset = "USD"
)

// DropsPerXRP is the base-unit scale of the base asset.
const DropsPerXRP int64 = 1_000_000

// PayoutAmount computes what an order's owner receives for a fill at the
// given price: the base asset for a buy, the counter asset for a sell.
// Intake bounds price*quantity, so fill*price cannot overflow.
func PayoutAmount(side Side, fill, price int64) (amount int64, asset string) {
	if side == SideBuy {
		return fill, BaseAsset
	}
	return fill * price, CounterAsset
}
