package projection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
)

const headerTag = "# govsdm"

// maxCoefficients bounds nMax*(lMax+1)^2 as read from a header.
const maxCoefficients = 1 << 24

// Write stores pf as a header line followed by one "n l m value" row per
// non-zero coefficient.
func Write(w io.Writer, pf *ProjectedF) (err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s basis=%s nMax=%d lMax=%d uMax=%s converged=%t\n",
		headerTag, pf.Basis.Type(), pf.NMax(), pf.LMax,
		strconv.FormatFloat(pf.UMax(), 'g', -1, 64), pf.Converged)
	for n := 0; n < pf.NMax(); n++ {
		for l := 0; l <= pf.LMax; l++ {
			for m := -l; m <= l; m++ {
				v := pf.coeffs[types.NLMOffset(n, l, m, pf.LMax)]
				if v == 0 {
					continue
				}
				fmt.Fprintf(bw, "%d %d %d %s\n", n, l, m, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
	}
	return bw.Flush()
}

func WriteFile(fileName string, pf *ProjectedF) (err error) {
	var file *os.File
	if file, err = os.Create(fileName); err != nil {
		return
	}
	if err = Write(file, pf); err != nil {
		file.Close()
		return
	}
	return file.Close()
}

// Read parses the format produced by Write. Blank lines and lines starting
// with '#' after the header are skipped.
func Read(r io.Reader) (pf *ProjectedF, err error) {
	var (
		sc        = bufio.NewScanner(r)
		line      int
		b         basis.Basis
		lMax      int
		converged bool
		coeffs    []float64
		seen      []bool
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if b == nil {
			if text == "" {
				continue
			}
			if b, lMax, converged, err = parseHeader(text, line); err != nil {
				return
			}
			coeffs = make([]float64, b.NMax()*types.LMCount(lMax))
			seen = make([]bool, len(coeffs))
			continue
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, &types.SerializationError{Line: line,
				Reason: fmt.Sprintf("want 4 columns \"n l m value\", got %d", len(fields))}
		}
		var idx [3]int
		for i := 0; i < 3; i++ {
			if idx[i], err = strconv.Atoi(fields[i]); err != nil {
				return nil, &types.SerializationError{Line: line,
					Reason: fmt.Sprintf("column %d: %q is not an integer", i+1, fields[i])}
			}
		}
		var v float64
		if v, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, &types.SerializationError{Line: line,
				Reason: fmt.Sprintf("value %q is not a number", fields[3])}
		}
		if err = types.CheckNLM(idx[0], idx[1], idx[2], b.NMax(), lMax); err != nil {
			return nil, &types.SerializationError{Line: line, Reason: err.Error()}
		}
		off := types.NLMOffset(idx[0], idx[1], idx[2], lMax)
		if seen[off] {
			return nil, &types.SerializationError{Line: line,
				Reason: fmt.Sprintf("duplicate coefficient (%d, %d, %d)", idx[0], idx[1], idx[2])}
		}
		seen[off] = true
		coeffs[off] = v
	}
	if err = sc.Err(); err != nil {
		return nil, &types.SerializationError{Line: line + 1, Reason: err.Error()}
	}
	if b == nil {
		return nil, &types.SerializationError{Line: line, Reason: "missing header"}
	}
	return NewProjectedF(b, lMax, coeffs, converged)
}

func ReadFile(fileName string) (pf *ProjectedF, err error) {
	var file *os.File
	if file, err = os.Open(fileName); err != nil {
		return
	}
	defer file.Close()
	return Read(file)
}

func parseHeader(text string, line int) (b basis.Basis, lMax int, converged bool, err error) {
	if !strings.HasPrefix(text, headerTag) {
		err = &types.SerializationError{Line: line, Reason: "missing \"" + headerTag + "\" header"}
		return
	}
	var (
		nMax int
		uMax float64
		bt   basis.Type
		kv   = make(map[string]string)
	)
	bad := func(reason string, args ...any) error {
		return &types.SerializationError{Line: line, Reason: fmt.Sprintf(reason, args...)}
	}
	for _, tok := range strings.Fields(strings.TrimPrefix(text, headerTag)) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			err = bad("header token %q is not key=value", tok)
			return
		}
		kv[k] = v
	}
	for _, key := range []string{"basis", "nMax", "lMax", "uMax"} {
		if _, ok := kv[key]; !ok {
			err = bad("header is missing %s", key)
			return
		}
	}
	if bt, err = basis.ParseType(kv["basis"]); err != nil {
		err = bad("%v", err)
		return
	}
	if nMax, err = strconv.Atoi(kv["nMax"]); err != nil || nMax < 1 {
		err = bad("nMax %q is not a positive integer", kv["nMax"])
		return
	}
	if lMax, err = strconv.Atoi(kv["lMax"]); err != nil || lMax < 0 {
		err = bad("lMax %q is not a non-negative integer", kv["lMax"])
		return
	}
	if lMax > basis.MaxLegendreDegree {
		err = bad("lMax %d exceeds %d", lMax, basis.MaxLegendreDegree)
		return
	}
	if nMax > maxCoefficients/types.LMCount(lMax) {
		err = bad("nMax %d with lMax %d holds more than %d coefficients", nMax, lMax, maxCoefficients)
		return
	}
	if uMax, err = strconv.ParseFloat(kv["uMax"], 64); err != nil {
		err = bad("uMax %q is not a number", kv["uMax"])
		return
	}
	converged = true
	if c, ok := kv["converged"]; ok {
		if converged, err = strconv.ParseBool(c); err != nil {
			err = bad("converged %q is not a boolean", c)
			return
		}
	}
	if b, err = basis.New(bt, nMax, uMax); err != nil {
		err = bad("%v", err)
	}
	return
}
