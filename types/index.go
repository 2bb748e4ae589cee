package types

// LMCount is the number of (l,m) pairs with l <= lMax.
func LMCount(lMax int) int {
	return (lMax + 1) * (lMax + 1)
}

// LMOffset packs (l,m) into [0, (lMax+1)^2): l^2 + l + m.
func LMOffset(l, m int) int {
	return l*l + l + m
}

// NLMOffset addresses coefficient (n,l,m) in a dense array that stores all
// (l,m) for one n contiguously.
func NLMOffset(n, l, m, lMax int) int {
	return n*LMCount(lMax) + LMOffset(l, m)
}

// CheckNLM validates (n,l,m) against nMax and lMax and returns an
// *IndexError naming the first offending index.
func CheckNLM(n, l, m, nMax, lMax int) error {
	switch {
	case n < 0 || n >= nMax:
		return NewIndexError("n", n, 0, nMax-1)
	case l < 0 || l > lMax:
		return NewIndexError("l", l, 0, lMax)
	case m < -l || m > l:
		return NewIndexError("m", m, -l, l)
	}
	return nil
}
