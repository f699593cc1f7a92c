package posthoc

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Gauss-Legendre nodes and weights for the studentized range integrals
// (Copenhaver & Holland, 1988). Only the positive half is stored.
var (
	legendre12X = [6]float64{
		0.981560634246719250690549090149,
		0.904117256370474856678465866119,
		0.769902674194304687036893833213,
		0.587317954286617447296702418941,
		0.367831498998180193752691536644,
		0.125233408511468915472441369464,
	}
	legendre12W = [6]float64{
		0.047175336386511827194615961485,
		0.106939325995318430960254718194,
		0.160078328543346226334652529543,
		0.203167426723065921749064455810,
		0.233492536538354808760849898925,
		0.249147045813402785000562436043,
	}
	legendre16X = [8]float64{
		0.989400934991649932596154173450,
		0.944575023073232576077988415535,
		0.865631202387831743880467897712,
		0.755404408355003033895101194847,
		0.617876244402643748446671764049,
		0.458016777657227386342419442984,
		0.281603550779258913230460501460,
		0.950125098376374401853193354250e-1,
	}
	legendre16W = [8]float64{
		0.271524594117540948517805724560e-1,
		0.622535239386478928628438369944e-1,
		0.951585116824927848099251076022e-1,
		0.124628971255533872052476282192,
		0.149595988816576732081501730547,
		0.169156519395002538189312079030,
		0.182603415044923588866763667969,
		0.189450610455068496285396723208,
	}
)

// rangeCDF returns P(W ≤ w) for the range W of k independent standard
// normal variables.
func rangeCDF(w, k float64) float64 {
	const (
		expLow  = -30.0
		expLow2 = -50.0
		expHigh = 60.0
		upper   = 8.0
		wide    = 3.0
	)

	half := w * 0.5
	if half >= upper {
		return 1
	}

	// P(|Z| ≤ w/2)^k, the probability that all k fall in (-w/2, w/2).
	pr := 2*distuv.UnitNormal.CDF(half) - 1
	if pr >= math.Exp(expLow2/k) {
		pr = math.Pow(pr, k)
	} else {
		pr = 0
	}

	intervals := 3.0
	if w > wide {
		intervals = 2
	}

	lo := half
	step := (upper - half) / intervals
	hi := lo + step
	k1 := k - 1
	total := 0.0

	for n := 1.0; n <= intervals; n++ {
		sum := 0.0
		mid := 0.5 * (hi + lo)
		rad := 0.5 * (hi - lo)
		for jj := 1; jj <= 12; jj++ {
			var j int
			var x float64
			if jj > 6 {
				j = 12 - jj
				x = legendre12X[j]
			} else {
				j = jj - 1
				x = -legendre12X[j]
			}
			u := mid + rad*x
			sq := u * u
			if sq > expHigh {
				break
			}
			plus := 2 * distuv.UnitNormal.CDF(u)
			minus := 2 * distuv.UnitNormal.CDF(u-w)
			inner := 0.5*plus - 0.5*minus
			if inner >= math.Exp(expLow/k1) {
				sum += legendre12W[j] * math.Exp(-0.5*sq) * math.Pow(inner, k1)
			}
		}
		sum *= 2 * rad * k / math.Sqrt(2*math.Pi)
		total += sum
		lo = hi
		hi += step
	}

	pr += total
	if pr <= math.Exp(expLow) {
		return 0
	}
	return math.Min(pr, 1)
}

// StudentizedRangeCDF returns P(Q ≤ q) for the studentized range of k means
// with df error degrees of freedom.
func StudentizedRangeCDF(q float64, k, df int) float64 {
	if q <= 0 || k < 2 || df < 1 {
		return 0
	}
	kf := float64(k)
	if df > 25000 {
		return rangeCDF(q, kf)
	}

	const (
		expLow = -30.0
		eps    = 1e-14
	)

	d := float64(df)
	f2 := d * 0.5
	lg, _ := math.Lgamma(f2)
	f2lf := f2*math.Log(d) - d*math.Ln2 - lg
	f21 := f2 - 1
	ff4 := d * 0.25

	var ulen float64
	switch {
	case df <= 100:
		ulen = 1
	case df <= 800:
		ulen = 0.5
	case df <= 5000:
		ulen = 0.25
	default:
		ulen = 0.125
	}
	f2lf += math.Log(ulen)

	ans := 0.0
	for i := 1; i <= 50; i++ {
		sum := 0.0
		twa1 := float64(2*i-1) * ulen
		for jj := 1; jj <= 16; jj++ {
			var j int
			var s float64
			if jj > 8 {
				j = jj - 9
				s = twa1 + legendre16X[j]*ulen
			} else {
				j = jj - 1
				s = twa1 - legendre16X[j]*ulen
			}
			// log of the chi density of the studentizing scale at s
			t1 := f2lf + f21*math.Log(s) - s*ff4
			if t1 >= expLow {
				sum += rangeCDF(q*math.Sqrt(s*0.5), kf) * legendre16W[j] * math.Exp(t1)
			}
		}
		if float64(i)*ulen >= 1 && sum <= eps {
			break
		}
		ans += sum
	}
	return math.Min(ans, 1)
}
