package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govsdm/govsdm/InputParameters"
	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
)

var testRun = []byte(`
Title: cmd test
VBasis: wavelet
VNMax: 4
VMax: 800
QBasis: tophat
QNMax: 4
QMax: 20000
LMax: 2
FDMn: 0
MX: 1.0e+8
MSM: 511000
DeltaE: 2
FSSigma: [4000, 4000, 6000]
FSCenter: [0, 1000, 0]
`)

func testParameters(t *testing.T) *InputParameters.RunParameters {
	rp := InputParameters.NewRunParameters()
	require.NoError(t, rp.Parse(testRun))
	require.NoError(t, rp.Validate())
	return rp
}

func decode(t *testing.T, buf *bytes.Buffer) (rep rateReport) {
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	return
}

func TestRunRate(t *testing.T) {
	var (
		ctx = context.Background()
		rp  = testParameters(t)
		dir = t.TempDir()
	)
	cache := kinematics.NewCache(rp.KinematicsOptions(), nil)

	// unrotated, projecting on the fly
	var buf bytes.Buffer
	require.NoError(t, RunRate(ctx, rp, RateArgs{JSON: true}, cache, &buf))
	rep := decode(t, &buf)
	require.Len(t, rep.Rates, 1)
	assert.True(t, rep.Converged)
	assert.Equal(t, "cmd test", rep.Title)
	r0 := rep.Rates[0].Rate
	assert.True(t, r0 > 0)

	// from coefficient files and a rotation file
	gX, err := RunProject(ctx, rp, "v")
	require.NoError(t, err)
	fs2, err := RunProject(ctx, rp, "q")
	require.NoError(t, err)
	gXFile, fs2File := filepath.Join(dir, "gX.txt"), filepath.Join(dir, "fs2.txt")
	require.NoError(t, projection.WriteFile(gXFile, gX))
	require.NoError(t, projection.WriteFile(fs2File, fs2))
	rotFile := filepath.Join(dir, "rot.yaml")
	require.NoError(t, os.WriteFile(rotFile, []byte("Rotations:\n  - [1, 0, 0, 0]\n  - [0, 0, 0.6, 0.8]\n"), 0o644))

	buf.Reset()
	ra := RateArgs{GXFile: gXFile, FS2File: fs2File, RotationsFile: rotFile, JSON: true}
	require.NoError(t, RunRate(ctx, rp, ra, cache, &buf))
	rep = decode(t, &buf)
	require.Len(t, rep.Rates, 2)
	assert.InDelta(t, r0, rep.Rates[0].Rate, 1.e-12*r0)
	assert.Equal(t, [4]float64{0, 0, 0.6, 0.8}, rep.Rates[1].Rotation)
	// the form factor is not centered, so orientation matters
	assert.NotEqual(t, rep.Rates[0].Rate, rep.Rates[1].Rate)
	hits, _ := cache.Stats()
	assert.Equal(t, 1, hits)

	// text output
	buf.Reset()
	ra.JSON = false
	require.NoError(t, RunRate(ctx, rp, ra, cache, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "# cmd test"))

	// a bad rotation file
	require.NoError(t, os.WriteFile(rotFile, []byte("Rotations: []\n"), 0o644))
	assert.Error(t, RunRate(ctx, rp, ra, cache, &buf))
}

func TestRunMcalI(t *testing.T) {
	var (
		ctx = context.Background()
		rp  = testParameters(t)
		dir = filepath.Join(t.TempDir(), "cache")
	)
	cache, closeFn, err := openCache(rp, dir)
	require.NoError(t, err)
	a, err := RunMcalI(ctx, rp, cache)
	require.NoError(t, err)
	closeFn()

	// a new process finds the matrix on disk
	cache, closeFn, err = openCache(rp, dir)
	require.NoError(t, err)
	defer closeFn()
	b, err := RunMcalI(ctx, rp, cache)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	v1, _ := a.At(1, 2, 3)
	v2, _ := b.At(1, 2, 3)
	assert.Equal(t, v1, v2)
}
