package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/testutil"
)

// writeRecognizedScan renders lines and records their boxes as a sidecar.
func writeRecognizedScan(t *testing.T, dir, name string, lines ...string) testutil.Scan {
	t.Helper()
	scan := testutil.WriteScan(t, dir, name, lines...)
	writeSidecarFor(t, scan)
	return scan
}

// writeSidecarFor records one detection per line of scan.
func writeSidecarFor(t *testing.T, scan testutil.Scan) {
	t.Helper()
	dets := make([]recognition.Detection, len(scan.Lines))
	for i, line := range scan.Lines {
		dets[i] = recognition.Detection{Quad: regions.QuadFromRect(scan.Boxes[i]), Text: line, Confidence: 1}
	}
	_, err := recognition.WriteSidecar(scan.Path, recognition.EngineSidecar, dets)
	require.NoError(t, err)
}

func newSidecarAdapter() *recognition.Adapter {
	return recognition.NewAdapter(recognition.NewSidecarEngine(), recognition.NewDecoder(1), recognition.AdapterOptions{})
}

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	chdir(t, dir)
	viper.Reset()
	bindFlags()
	t.Cleanup(func() {
		viper.Reset()
		bindFlags()
	})
	return dir
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag of cmd and its children to its default, since
// cobra keeps parsed values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for the Go 1.21 toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
