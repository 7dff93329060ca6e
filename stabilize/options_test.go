package stabilize

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	test.That(t, opts.Validate(), test.ShouldBeNil)
	test.That(t, opts.RANSACIters, test.ShouldEqual, 1000)
	test.That(t, opts.RANSACEps, test.ShouldEqual, 10.0)
	test.That(t, opts.Filter, test.ShouldResemble, []float64{0.1, 0.3, 0.5, 0.3, 0.1})
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.RANSACIters = 0
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	opts = DefaultOptions()
	opts.RANSACEps = -1
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	opts = DefaultOptions()
	opts.Filter = []float64{0.5, 0.5}
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	opts = DefaultOptions()
	opts.Filter = []float64{0.5, -0.1, 0.5}
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	opts = DefaultOptions()
	opts.Detector = nil
	test.That(t, opts.Validate(), test.ShouldNotBeNil)
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.json")
	content := `{"ransac_iters": 500, "rng_seed": 99, "filter": [0.2, 0.6, 0.2]}`
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)

	opts, err := LoadOptions(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.RANSACIters, test.ShouldEqual, 500)
	test.That(t, opts.RNGSeed, test.ShouldEqual, int64(99))
	test.That(t, opts.Filter, test.ShouldResemble, []float64{0.2, 0.6, 0.2})
	// unspecified fields keep their defaults
	test.That(t, opts.RANSACEps, test.ShouldEqual, 10.0)
	test.That(t, opts.Detector, test.ShouldNotBeNil)

	_, err = LoadOptions(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	badPath := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(badPath, []byte(`{"ransac_iters": -3}`), 0o600), test.ShouldBeNil)
	_, err = LoadOptions(badPath)
	test.That(t, err, test.ShouldNotBeNil)
}
