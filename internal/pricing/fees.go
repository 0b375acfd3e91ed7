package pricing

import "math"

// CalcTakerFee computes venue A's taker fee for a single-side buy of n
// shares at decimal price p: fee = n*p*0.25*(p*(1-p))^2. At p=0.5 this is
// approximately 0.0078 dollars per share. The fee is zero at the price
// extremes (p=0 or p=1).
func CalcTakerFee(p, n float64) float64 {
	spread := p * (1 - p)
	return n * p * 0.25 * spread * spread
}

// CalcSameMarketFee sums the venue-A taker fee for both legs of a
// same-market pair (buy YES at priceYes, buy NO at priceNo, same size n).
func CalcSameMarketFee(priceYes, priceNo, n float64) float64 {
	return CalcTakerFee(priceYes, n) + CalcTakerFee(priceNo, n)
}

// PairArbResult is the outcome of the generic pair-arb profit calculation.
type PairArbResult struct {
	GrossDollars float64
	NetDollars   float64
	Profitable   bool
}

// CalcPairArb computes gross/net profit for a pair of per-share costs cA,
// cB (dollars) over n shares with total fee F (dollars): gross =
// (1-(cA+cB))*n, net = gross - F, profitable iff net > 0.
func CalcPairArb(cA, cB, n, feeDollars float64) PairArbResult {
	gross := (1 - (cA + cB)) * n
	net := gross - feeDollars
	return PairArbResult{
		GrossDollars: gross,
		NetDollars:   net,
		Profitable:   net > 0,
	}
}

// ValidateMinOrder reports whether buying n contracts at priceCents cents
// each clears the minimum order size in dollars.
func ValidateMinOrder(priceCents int, n float64, minOrderDollars float64) bool {
	dollars := float64(priceCents) / 100.0 * n
	return dollars >= minOrderDollars
}

// MinContractsForPrice computes the minimum whole number of contracts at
// decimal price p needed to clear minOrderDollars:
// minContractsForPrice(p) = ceil(minOrderDollars / p).
func MinContractsForPrice(p, minOrderDollars float64) int {
	if p <= 0 {
		return 0
	}
	return int(math.Ceil(minOrderDollars / p))
}

// SafeSize applies the liquidity margin and the requested cap:
// safeSize = floor(availableDepth * liquidityMargin), capped to
// [0, requested].
func SafeSize(availableDepth, liquidityMargin, requested float64) float64 {
	safe := math.Floor(availableDepth * liquidityMargin)
	if safe < 0 {
		safe = 0
	}
	if safe > requested {
		safe = requested
	}
	return safe
}
