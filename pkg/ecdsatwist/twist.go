package ecdsatwist

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/mahdiidarabi/ecdsa-twist/internal/modarith"
)

// point is an affine point or the point at infinity on y^2 = x^3 + b.
type point struct {
	x, y *big.Int
	inf  bool
}

var infinity = point{inf: true}

func fromCurvePoint(p *CurvePoint) point {
	return point{x: new(big.Int).Set(p.X), y: new(big.Int).Set(p.Y)}
}

func (p point) equal(o point) bool {
	if p.inf || o.inf {
		return p.inf == o.inf
	}
	return p.x.Cmp(o.x) == 0 && p.y.Cmp(o.y) == 0
}

// twistCurve is y^2 = x^3 + b over the secp256k1 field. The group law for
// a = 0 never references b, which is why a verifier that skips the curve
// check ends up computing on this curve instead of secp256k1.
type twistCurve struct {
	b *big.Int
	p *big.Int
}

func newTwistCurve(b *big.Int) *twistCurve {
	return &twistCurve{b: modarith.Mod(b, Secp256k1FieldPrime), p: Secp256k1FieldPrime}
}

func (c *twistCurve) singular() bool {
	return c.b.Sign() == 0
}

func (c *twistCurve) contains(pt point) bool {
	if pt.inf {
		return true
	}
	lhs := modarith.MulMod(pt.y, pt.y, c.p)
	rhs := modarith.MulMod(pt.x, pt.x, c.p)
	rhs = modarith.MulMod(rhs, pt.x, c.p)
	rhs.Add(rhs, c.b).Mod(rhs, c.p)
	return lhs.Cmp(rhs) == 0
}

func (c *twistCurve) inverse(v *big.Int) *big.Int {
	inv, err := modarith.ModInverse(v, c.p)
	if err != nil {
		// the callers exclude zero denominators; reaching this is a defect
		panic(fmt.Sprintf("ecdsatwist: group law inverted a zero element: %v", err))
	}
	return inv
}

func (c *twistCurve) neg(pt point) point {
	if pt.inf {
		return pt
	}
	return point{x: new(big.Int).Set(pt.x), y: modarith.SubMod(c.p, pt.y, c.p)}
}

func (c *twistCurve) double(pt point) point {
	if pt.inf || pt.y.Sign() == 0 {
		return infinity
	}

	// λ = 3x² / 2y
	num := modarith.MulMod(pt.x, pt.x, c.p)
	num.Mul(num, big.NewInt(3))
	den := new(big.Int).Lsh(pt.y, 1)
	lambda := modarith.MulMod(num, c.inverse(den), c.p)

	return c.finish(lambda, pt.x, pt.x, pt.y)
}

func (c *twistCurve) add(p1, p2 point) point {
	if p1.inf {
		return p2
	}
	if p2.inf {
		return p1
	}

	if p1.x.Cmp(p2.x) == 0 {
		if p1.y.Cmp(p2.y) == 0 {
			return c.double(p1)
		}
		return infinity
	}

	// λ = (y2 - y1) / (x2 - x1)
	num := modarith.SubMod(p2.y, p1.y, c.p)
	den := modarith.SubMod(p2.x, p1.x, c.p)
	lambda := modarith.MulMod(num, c.inverse(den), c.p)

	return c.finish(lambda, p1.x, p2.x, p1.y)
}

// finish computes x3 = λ² - x1 - x2, y3 = λ(x1 - x3) - y1.
func (c *twistCurve) finish(lambda, x1, x2, y1 *big.Int) point {
	x3 := modarith.MulMod(lambda, lambda, c.p)
	x3.Sub(x3, x1).Sub(x3, x2).Mod(x3, c.p)

	y3 := modarith.SubMod(x1, x3, c.p)
	y3.Mul(y3, lambda).Sub(y3, y1).Mod(y3, c.p)

	return point{x: x3, y: y3}
}

// scalarMult computes k·pt by double-and-add. Negative k multiplies -pt.
func (c *twistCurve) scalarMult(k *big.Int, pt point) point {
	if k.Sign() < 0 {
		return c.scalarMult(new(big.Int).Neg(k), c.neg(pt))
	}

	result := infinity
	for i := k.BitLen() - 1; i >= 0; i-- {
		result = c.double(result)
		if k.Bit(i) == 1 {
			result = c.add(result, pt)
		}
	}
	return result
}

var (
	twistOrdersOnce sync.Once
	twistOrders     []*big.Int
)

// TwistOrders returns the group orders of the six curves y^2 = x^3 + b,
// b != 0, over the secp256k1 field. Since p ≡ 1 (mod 3) these are the
// sextic twists of secp256k1: with t = p + 1 - n and 4p = t² + 3v², the
// traces are ±t, ±(t+3v)/2 and ±(t-3v)/2. The first entry is n itself.
func TwistOrders() []*big.Int {
	twistOrdersOnce.Do(func() {
		p := Secp256k1FieldPrime
		pPlus1 := new(big.Int).Add(p, big.NewInt(1))

		t := new(big.Int).Sub(pPlus1, Secp256k1CurveOrder)

		// 3v² = 4p - t²
		w := new(big.Int).Lsh(p, 2)
		w.Sub(w, new(big.Int).Mul(t, t))
		v2, rem := new(big.Int).QuoRem(w, big.NewInt(3), new(big.Int))
		v := new(big.Int).Sqrt(v2)
		if rem.Sign() != 0 || new(big.Int).Mul(v, v).Cmp(v2) != 0 {
			panic("ecdsatwist: 4p - t^2 is not three times a square")
		}

		threeV := new(big.Int).Mul(v, big.NewInt(3))
		tPlus := new(big.Int).Add(t, threeV)
		tPlus.Quo(tPlus, big.NewInt(2))
		tMinus := new(big.Int).Sub(t, threeV)
		tMinus.Quo(tMinus, big.NewInt(2))

		traces := []*big.Int{
			t,
			new(big.Int).Neg(t),
			tPlus,
			tMinus,
			new(big.Int).Neg(tPlus),
			new(big.Int).Neg(tMinus),
		}

		for _, tr := range traces {
			twistOrders = append(twistOrders, new(big.Int).Sub(pPlus1, tr))
		}
	})

	out := make([]*big.Int, len(twistOrders))
	for i, o := range twistOrders {
		out[i] = new(big.Int).Set(o)
	}
	return out
}

// curveOrder picks the twist order N with [N]P = O for every given point.
func (c *twistCurve) curveOrder(pts ...point) (*big.Int, error) {
	var match *big.Int
	for _, order := range TwistOrders() {
		ok := true
		for _, pt := range pts {
			if !c.scalarMult(order, pt).inf {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("twist order is ambiguous: both %s and %s annihilate the point", match, order)
		}
		match = order
	}

	if match == nil {
		return nil, fmt.Errorf("no twist order annihilates the point on y^2 = x^3 + %s", c.b)
	}
	return match, nil
}

// BasePointFunc returns the base point a faulty signer used on the curve
// y^2 = x^3 + b.
type BasePointFunc func(b *big.Int) (*CurvePoint, error)

// LiftedGenerator is the default BasePointFunc: the secp256k1 generator
// lifted onto y^2 = x^3 + b. It takes the first x >= Gx for which x^3 + b
// is a non-zero square and the root whose parity matches Gy.
func LiftedGenerator(b *big.Int) (*CurvePoint, error) {
	p := Secp256k1FieldPrime
	bb := modarith.Mod(b, p)

	x := new(big.Int).Set(secp256k1Params.Gx)
	gyParity := secp256k1Params.Gy.Bit(0)

	for i := 0; i < 1024; i++ {
		rhs := modarith.MulMod(x, x, p)
		rhs = modarith.MulMod(rhs, x, p)
		rhs.Add(rhs, bb).Mod(rhs, p)

		if rhs.Sign() != 0 {
			if y, ok := fieldSqrt(rhs); ok {
				if y.Bit(0) != gyParity {
					y.Sub(p, y)
				}
				return &CurvePoint{X: x, Y: y, onCurve: bb.Cmp(secp256k1B) == 0}, nil
			}
		}

		x.Add(x, big.NewInt(1))
	}

	return nil, fmt.Errorf("no point with x in [Gx, Gx+1024) on y^2 = x^3 + %s", bb)
}

// singularLog solves target = d·base on the cusp y^2 = x^3, whose
// non-singular points form a group isomorphic to (F_p, +) via
// (x, y) -> x/y.
func (c *twistCurve) singularLog(base, target point) (*big.Int, error) {
	if base.inf || target.inf || base.y.Sign() == 0 || target.y.Sign() == 0 {
		return nil, fmt.Errorf("point is the cusp of y^2 = x^3")
	}

	tb := modarith.MulMod(base.x, c.inverse(base.y), c.p)
	tq := modarith.MulMod(target.x, c.inverse(target.y), c.p)
	if tb.Sign() == 0 {
		return nil, fmt.Errorf("base point maps to zero on the cusp")
	}

	return modarith.MulMod(tq, c.inverse(tb), c.p), nil
}
