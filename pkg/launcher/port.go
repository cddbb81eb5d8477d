package launcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
)

// PortPlaceholder is the token in router config files replaced by the external port.
const PortPlaceholder = "@EXT_PORT@"

// PatchPort replaces PortPlaceholder with port in every *.config file directly
// inside dir. It returns the files that changed.
func PatchPort(dir string, port int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.config"))
	if err != nil {
		return nil, err
	}

	token := []byte(PortPlaceholder)
	value := []byte(strconv.Itoa(port))
	var patched []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return patched, err
		}
		if !bytes.Contains(data, token) {
			continue
		}
		if err := os.WriteFile(path, bytes.ReplaceAll(data, token, value), info.Mode().Perm()); err != nil {
			return patched, err
		}
		patched = append(patched, path)
	}
	return patched, nil
}
