package firefox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/ctxkeep/internal/types"
)

// DirEnv overrides the Firefox directory lookup.
const DirEnv = "CTXKEEP_FIREFOX_DIR"

// FindFirefoxDir returns the directory holding profiles.ini, or "" when
// the platform has no known location.
func FindFirefoxDir() string {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox")
		}
	}
	return ""
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have
// a session file ctxkeep can read. Relative paths are resolved against
// firefoxDir.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	all, err := readProfiles(f)
	if err != nil {
		return nil, err
	}
	var usable []types.Profile
	for _, p := range all {
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, p.Path)
		}
		if hasSession(p.Path) {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

// readProfiles collects every [ProfileN] section. Install and General
// sections are ignored.
func readProfiles(r io.Reader) ([]types.Profile, error) {
	var (
		out     []types.Profile
		current *types.Profile
	)
	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		if section, ok := strings.CutPrefix(line, "["); ok {
			flush()
			if strings.HasPrefix(strings.TrimSuffix(section, "]"), "Profile") {
				current = &types.Profile{}
			}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			current.Name = value
		case "Path":
			current.Path = filepath.FromSlash(value)
		case "IsRelative":
			current.IsRelative = value == "1"
		case "Default":
			current.IsDefault = value == "1"
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}
	flush()
	return out, nil
}

func hasSession(profileDir string) bool {
	dir := SessionDir(profileDir)
	for _, name := range SessionFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]types.Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s (set %s)", runtime.GOOS, DirEnv)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// ResolveProfile returns the profile with the given name. An empty name
// picks the default profile, falling back to the first one found.
func ResolveProfile(name string) (types.Profile, error) {
	profiles, err := DiscoverProfiles()
	if err != nil {
		return types.Profile{}, fmt.Errorf("discover profiles: %w", err)
	}
	return pickProfile(profiles, name)
}

func pickProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profiles found")
	}
	if name != "" {
		for _, p := range profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return types.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return profiles[0], nil
}
