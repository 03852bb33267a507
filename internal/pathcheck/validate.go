package pathcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mirrorvault/internal/pairs"
)

// NoEditing is passed as editingIndex when validating a new pair.
const NoEditing = -1

const forbiddenChars = `<>"|?*`

// criticalPaths are matched as lower-case prefixes. Hits are advisories only.
var criticalPaths = []string{
	`c:\windows\system32`,
	`c:\windows\syswow64`,
	`c:\program files\windows`,
	`c:\programdata\microsoft\windows`,
	`c:\system volume information`,
	`c:\$recycle.bin`,
	`c:\recovery`,
	`c:\boot`,
	`c:\efi`,
	"/proc",
	"/sys",
	"/dev",
	"/boot",
	"/etc",
}

// Validate checks a candidate pair against the filesystem and the existing
// pair list. editingIndex names the pair being replaced (NoEditing for a
// new pair) and is excluded from the duplicate checks.
func Validate(source, destination string, existing []pairs.Pair, editingIndex int) Report {
	return Report{
		Source:      validateSource(source),
		Destination: validateDestination(destination),
		Cross:       validateCross(source, destination, existing, editingIndex),
	}
}

func validateSource(path string) Result {
	if strings.TrimSpace(path) == "" {
		return fail("source path cannot be empty")
	}
	if msg := checkCharacters(path); msg != "" {
		return fail(msg)
	}
	if isNetworkPath(path) {
		if msg := checkNetworkPath(path); msg != "" {
			return fail(msg)
		}
		return warn("network path detected - verify connectivity")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail("source path does not exist")
	}
	if !info.IsDir() {
		return fail("source path must be a directory")
	}
	if _, err := os.ReadDir(path); err != nil {
		return fail("no read permission on source directory")
	}
	if isCriticalPath(path) {
		return warn("system directory - verify this is intentional")
	}
	return ok()
}

func validateDestination(path string) Result {
	if strings.TrimSpace(path) == "" {
		return fail("destination path cannot be empty")
	}
	if msg := checkCharacters(path); msg != "" {
		return fail(msg)
	}
	if isNetworkPath(path) {
		if msg := checkNetworkPath(path); msg != "" {
			return fail(msg)
		}
		return warn("network path detected - verify connectivity")
	}

	info, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && !info.IsDir() {
		return fail("destination exists but is not a directory")
	}

	if exists {
		if err := probeWrite(path); err != nil {
			return fail("no write permission on destination directory")
		}
		return ok()
	}

	// Missing destinations are created on first run; the parent must accept it.
	parent := filepath.Dir(filepath.Clean(path))
	parentInfo, err := os.Stat(parent)
	if err != nil || !parentInfo.IsDir() {
		return fail("destination parent directory does not exist")
	}
	if err := probeWrite(parent); err != nil {
		return fail("no write permission on destination parent directory")
	}
	return ok()
}

func validateCross(source, destination string, existing []pairs.Pair, editingIndex int) Result {
	src := normalize(source)
	dst := normalize(destination)

	if src == dst {
		return fail("source and destination cannot be the same")
	}
	if isNested(source, destination) {
		return fail("circular dependency: source is inside destination or vice versa")
	}

	for i, pair := range existing {
		if i != editingIndex && normalize(pair.Source) == src && normalize(pair.Destination) == dst {
			return fail("a pair with these exact paths already exists")
		}
	}
	for i, pair := range existing {
		if i == editingIndex {
			continue
		}
		pairSrc := normalize(pair.Source)
		pairDst := normalize(pair.Destination)
		switch {
		case pairSrc == src:
			return warn(fmt.Sprintf("source is already mirrored to: %s", pair.Destination))
		case pairDst == dst:
			return warn(fmt.Sprintf("destination is already used by: %s", pair.Source))
		case pairDst == src:
			return warn(fmt.Sprintf("source is the destination of another pair (from %s)", pair.Source))
		case pairSrc == dst:
			return warn(fmt.Sprintf("destination is the source of another pair (to %s)", pair.Destination))
		}
	}
	return ok()
}

// checkCharacters rejects characters no supported filesystem accepts. A
// colon is only legal as a drive marker or inside a network path.
func checkCharacters(path string) string {
	if idx := strings.IndexAny(path, forbiddenChars); idx >= 0 {
		return fmt.Sprintf("invalid character '%c' in path", path[idx])
	}
	if isNetworkPath(path) {
		return ""
	}
	for i, r := range path {
		if r != ':' {
			continue
		}
		if i == 1 && isASCIILetter(path[0]) {
			continue
		}
		return "character ':' in invalid position"
	}
	return ""
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNetworkPath(path string) bool {
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

func checkNetworkPath(path string) string {
	rest := path[2:]
	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '\\' || r == '/' })
	if len(parts) < 2 || strings.HasPrefix(rest, `\`) || strings.HasPrefix(rest, "/") {
		return `network path must look like \\server\share`
	}
	return ""
}

func isCriticalPath(path string) bool {
	lower := strings.ToLower(path)
	for _, critical := range criticalPaths {
		if lower == critical || strings.HasPrefix(lower, critical+`\`) || strings.HasPrefix(lower, critical+"/") {
			return true
		}
	}
	return false
}

// isNested resolves both paths and reports whether one contains the other.
// Paths that do not both exist are never considered nested; siblings are fine.
func isNested(source, destination string) bool {
	src, err := canonical(source)
	if err != nil {
		return false
	}
	dst, err := canonical(destination)
	if err != nil {
		return false
	}
	return within(dst, src) || within(src, dst)
}

func canonical(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

// within reports whether child equals parent or lies beneath it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func normalize(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return filepath.Clean(trimmed)
}

func probeWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".mirrorvault-write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_, writeErr := f.Write([]byte("test"))
	closeErr := f.Close()
	removeErr := os.Remove(name)
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}
