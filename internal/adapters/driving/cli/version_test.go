package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"dev build", "dev"},
		{"release build", "v1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := version
			SetVersion(tt.version)
			defer SetVersion(original)

			buf := new(bytes.Buffer)
			rootCmd.SetOut(buf)
			rootCmd.SetArgs([]string{"version"})
			defer func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
			}()

			require.NoError(t, rootCmd.Execute())
			assert.Contains(t, buf.String(), "wirestore version "+tt.version+" (")
			assert.Contains(t, buf.String(), runtime.GOOS+"/"+runtime.GOARCH)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	assert.Error(t, versionCmd.Args(versionCmd, []string{"extra"}))
}
