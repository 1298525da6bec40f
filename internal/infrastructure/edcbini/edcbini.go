// Package edcbini reads the settings EDCB keeps in Shift-JIS encoded INI
// files next to its reservation list.
package edcbini

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"gopkg.in/ini.v1"
)

const (
	reserveFileName = "Reserve.txt"
	serverIniName   = "EpgTimerSrv.ini"
	commonIniName   = "Common.ini"
	settingSection  = "SET"
)

// loadOptions follow GetPrivateProfileString: names ignore case, values
// keep ';', '#' and a trailing '\' and lines without '=' are skipped.
var loadOptions = ini.LoadOptions{
	Insensitive:             true,
	IgnoreContinuation:      true,
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
	KeyValueDelimiters:      "=",
}

// Parse reads a Shift-JIS INI document.
func Parse(r io.Reader) (*ini.File, error) {
	data, err := io.ReadAll(transform.NewReader(r, japanese.ShiftJIS.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("read ini: %w", err)
	}
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}
	return f, nil
}

// Load parses the INI file at path.
func Load(path string) (*ini.File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// ReserveFile locates Reserve.txt for an EDCB install. installPath may
// name the file itself, the install directory or its Setting directory.
func ReserveFile(installPath string) (string, bool) {
	if installPath == "" {
		return "", false
	}
	for _, p := range []string{
		installPath,
		filepath.Join(installPath, "Setting", reserveFileName),
		filepath.Join(installPath, reserveFileName),
	} {
		if isReserveFile(p) {
			return p, true
		}
	}
	return "", false
}

func isReserveFile(p string) bool {
	if !strings.EqualFold(filepath.Base(p), reserveFileName) {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// siblingIni finds name in the parent of the Reserve.txt directory, then
// in that directory itself.
func siblingIni(installPath, name string) (string, bool) {
	reserve, ok := ReserveFile(installPath)
	if !ok {
		return "", false
	}
	dir := filepath.Dir(reserve)
	for _, p := range []string{
		filepath.Join(filepath.Dir(dir), name),
		filepath.Join(dir, name),
	} {
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// DefaultMargins reads the server-wide recording margins in seconds from
// EpgTimerSrv.ini. ok is false when the file cannot be found or read;
// missing keys keep the passed fallbacks.
func DefaultMargins(installPath string, start, end int32) (int32, int32, bool) {
	p, found := siblingIni(installPath, serverIniName)
	if !found {
		return start, end, false
	}
	f, err := Load(p)
	if err != nil {
		return start, end, false
	}
	sec := f.Section(settingSection)
	start = int32(sec.Key("StartMargin").MustInt(int(start)))
	end = int32(sec.Key("EndMargin").MustInt(int(end)))
	return start, end, true
}

// RecFolders returns the common recording folders from Common.ini in
// configured order.
func RecFolders(installPath string) ([]string, error) {
	p, found := siblingIni(installPath, commonIniName)
	if !found {
		return []string{}, nil
	}
	f, err := Load(p)
	if err != nil {
		return nil, err
	}
	sec := f.Section(settingSection)
	n := sec.Key("RecFolderNum").MustInt(0)
	out := make([]string, 0, max(n, 0))
	for i := 0; i < n; i++ {
		if v := sec.Key("RecFolderPath" + strconv.Itoa(i)).String(); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
