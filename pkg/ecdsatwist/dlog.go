package ecdsatwist

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
)

var errNoDiscreteLog = errors.New("no discrete logarithm in the subgroup")

func low64(v *big.Int) uint64 {
	var buf [32]byte
	v.FillBytes(buf[:])
	return binary.BigEndian.Uint64(buf[24:])
}

// discreteLog solves target = x·base for x in [0, q) with baby-step
// giant-step, where base has prime order q. Memory is O(sqrt q).
func (c *twistCurve) discreteLog(ctx context.Context, base, target point, q *big.Int) (*big.Int, error) {
	if target.inf {
		return big.NewInt(0), nil
	}

	m := new(big.Int).Sqrt(q)
	m.Add(m, big.NewInt(1))
	steps := m.Uint64()

	// baby steps: x-coordinate of j·base -> j
	table := make(map[uint64]uint64, steps)
	cur := infinity
	for j := uint64(0); j < steps; j++ {
		if j&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !cur.inf {
			key := low64(cur.x)
			if _, ok := table[key]; !ok {
				table[key] = j
			}
		}
		cur = c.add(cur, base)
	}

	// cur == m·base
	giant := c.neg(cur)
	gamma := target
	im := new(big.Int)
	cand := new(big.Int)

	for i := uint64(0); i <= steps; i++ {
		if i&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		im.SetUint64(i).Mul(im, m)

		if gamma.inf {
			if x, ok := c.checkLog(base, target, q, cand.Set(im)); ok {
				return x, nil
			}
		} else if j, ok := table[low64(gamma.x)]; ok {
			// gamma = ±j·base, so target = (i·m ± j)·base
			jb := new(big.Int).SetUint64(j)
			if x, ok := c.checkLog(base, target, q, cand.Add(im, jb)); ok {
				return x, nil
			}
			if x, ok := c.checkLog(base, target, q, cand.Sub(im, jb)); ok {
				return x, nil
			}
		}

		gamma = c.add(gamma, giant)
	}

	return nil, errNoDiscreteLog
}

func (c *twistCurve) checkLog(base, target point, q, x *big.Int) (*big.Int, bool) {
	r := new(big.Int).Mod(x, q)
	if c.scalarMult(r, base).equal(target) {
		return r, true
	}
	return nil, false
}
