package pathsafe

import (
	"runtime"
	"strings"
)

// Kind classifies the volume a path lives on.
type Kind int

const (
	// Local volumes use the platform trash for deletions.
	Local Kind = iota
	// Network volumes are deleted directly (unlink/rmdir); trash daemons
	// generally cannot service them.
	Network
)

func (k Kind) String() string {
	if k == Network {
		return "network"
	}

	return "local"
}

// networkDriveThreshold is the first Windows drive letter assumed to be a
// mapped network drive. C: is always local; mapped shares conventionally
// start at D: or later on the deployments this serves.
const networkDriveThreshold = 'D'

// Classify decides local vs. network for a canonical path using purely
// lexical rules. It is side-effect-free and may be wrong on exotic mount
// configurations; callers must tolerate misclassification by falling back to
// direct unlink when the platform trash refuses a path.
func Classify(path string) Kind {
	return classifyFor(runtime.GOOS, path)
}

// classifyFor is the testable core of Classify, parameterized on the OS
// family so both rule sets are exercised on any host.
func classifyFor(goos, path string) Kind {
	// UNC prefix is network on every platform.
	if strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//") {
		return Network
	}

	switch goos {
	case "windows":
		if len(path) >= 2 && path[1] == ':' {
			letter := upper(path[0])
			if letter >= networkDriveThreshold && letter <= 'Z' {
				return Network
			}
		}

		return Local
	default:
		// macOS mounts removable and network volumes under /Volumes; the
		// boot volume ("Macintosh HD" by default) is the exception.
		if strings.HasPrefix(path, "/Volumes/") && !strings.HasPrefix(path, "/Volumes/Macintosh") {
			return Network
		}

		return Local
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}

	return b
}
