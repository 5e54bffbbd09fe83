package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/modeldia/pkg/config"
	"github.com/ritzau/modeldia/pkg/diagram"
	"github.com/ritzau/modeldia/pkg/model"
)

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Pretend(t *testing.T) {
	out, _, err := runArgs(t, "--models", "testdata/shop.yaml", "--pretend", "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop.Category\nshop.Product\nshop.Shop\nshop.Timestamped\n", out)

	out, _, err = runArgs(t, "-m", "testdata/shop.yaml", "-p", "-X", "Timestamped,shop.Shop", "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop.Category\nshop.Product\n", out)

	out, _, err = runArgs(t, "-m", "testdata/shop.yaml", "-p", "--include-related", "1", "shop")
	require.NoError(t, err)
	assert.Contains(t, out, "auth.User\n")
}

func TestRun_Stdout(t *testing.T) {
	out, _, err := runArgs(t, "-m", "testdata/shop.yaml", "--seed", "7", "shop")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))

	root, err := diagram.ParseElement(strings.NewReader(out))
	require.NoError(t, err)
	// 4 tables and 3 references, Product.owner points at an app that is not drawn
	layer := root.Find("dia:layer")
	require.NotNil(t, layer)
	assert.Len(t, layer.FindAll("dia:object"), 7)

	again, _, err := runArgs(t, "-m", "testdata/shop.yaml", "--seed", "7", "shop")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRun_OutputFile(t *testing.T) {
	color.NoColor = true
	name := filepath.Join(t.TempDir(), "shop")

	_, stderr, err := runArgs(t, "-m", "testdata/shop.yaml", "-o", name, "--seed", "1", "--verbosity", "error", "shop")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Output: "+name+".dia")
	assert.Contains(t, stderr, "Tables: 4")
	assert.Contains(t, stderr, "Relations: 3")
	assert.Contains(t, stderr, "shop.Product -> auth.User")
	assert.Contains(t, stderr, "shop.Category -> shop.Category")

	f, err := os.Open(name + ".dia")
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	root, err := diagram.ParseElement(zr)
	require.NoError(t, err)
	assert.Equal(t, "dia:diagram", root.Name)
}

func TestRun_Errors(t *testing.T) {
	_, _, err := runArgs(t, "shop")
	assert.True(t, errors.Is(err, config.ErrNoSource))

	_, _, err = runArgs(t, "-m", "testdata/shop.yaml", "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, _, err = runArgs(t, "-m", "testdata/shop.yaml", "--schema-file", "schema.hcl")
	assert.ErrorContains(t, err, "conflicting model sources")

	_, _, err = runArgs(t, "--no-such-flag")
	assert.Error(t, err)
}

func TestRun_Help(t *testing.T) {
	_, stderr, err := runArgs(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Usage: modeldia")
	assert.Contains(t, stderr, "--exclude-models")
}
