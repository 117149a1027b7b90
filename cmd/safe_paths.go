package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khanhnv2901/seca-suite/internal/export"
)

const exportsDirName = "exports"

// exportDir is where exports land when no --out is given
func exportDir(appCtx *AppContext) string {
	return filepath.Join(appCtx.DataDir, exportsDirName)
}

// splitOutputPath turns an --out value into a directory and a single file
// name. An empty value or an existing directory keeps defaultName.
func splitOutputPath(appCtx *AppContext, out, defaultName string) (dir, name string, err error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return exportDir(appCtx), defaultName, nil
	}
	if strings.ContainsAny(out, "\r\n\x00") {
		return "", "", fmt.Errorf("output path %q contains invalid characters", out)
	}
	if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
		return out, defaultName, nil
	}
	return filepath.Dir(out), filepath.Base(out), nil
}

// writeExport stores data at the resolved output location and returns the path.
func writeExport(appCtx *AppContext, out, defaultName string, data []byte) (string, error) {
	dir, name, err := splitOutputPath(appCtx, out, defaultName)
	if err != nil {
		return "", err
	}
	return export.WriteFile(dir, name, data)
}
