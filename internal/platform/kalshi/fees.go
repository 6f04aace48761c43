package kalshi

import "math"

// takerFeeRate is the published taker fee multiplier.
const takerFeeRate = 0.07

// TakerFee returns the exchange fee in dollars for filling contracts at
// price (dollars, 0..1): ceil(0.07 * C * P * (1-P)) rounded up to the cent.
func TakerFee(price float64, contracts int) float64 {
	fee := takerFeeRate * float64(contracts) * price * (1 - price)
	return math.Ceil(fee*100) / 100
}
