package grpc

import "math/big"

func parseBigIntOrZero(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func parseBigRatOrNil(num, denom string) *big.Rat {
	if num == "" || denom == "" {
		return nil
	}
	n, nOK := new(big.Int).SetString(num, 10)
	d, dOK := new(big.Int).SetString(denom, 10)
	if !nOK || !dOK || d.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(n, d)
}
