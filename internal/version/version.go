package version

import (
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Set at build time with -ldflags "-X github.com/kpelzel/artnode/internal/version.Version=..."
var (
	Version   = "1.0.0"
	BuildTime = "2024-06-20T16:06:00Z"
	CommitID  = "1e92a576689c77f300efdb80705f536923a2d2fc"
)

type Info struct {
	Version   string `json:"Version"`
	BuildTime string `json:"BuildTime"`
	CommitID  string `json:"CommitID"`
}

func Get() Info {
	return Info{Version: Version, BuildTime: BuildTime, CommitID: CommitID}
}

// Semver splits Version into major, minor and patch; missing or malformed parts are 0.
func Semver() (major, minor, patch uint8) {
	parts := strings.SplitN(strings.TrimPrefix(Version, "v"), ".", 3)
	nums := [3]uint8{}
	for i, p := range parts {
		if j := strings.IndexAny(p, "-+"); j >= 0 {
			p = p[:j]
		}
		n, err := strconv.ParseUint(p, 10, 8)
		if err == nil {
			nums[i] = uint8(n)
		}
	}
	return nums[0], nums[1], nums[2]
}

// BuildUnix is the build time in seconds since the epoch, or 0 if it does not parse.
func BuildUnix() uint32 {
	t, err := time.Parse(time.RFC3339, BuildTime)
	if err != nil {
		return 0
	}
	return uint32(t.Unix())
}

func Log() {
	log.Infof("version: %v", Version)
	log.Infof("build time: %v", BuildTime)
	log.Infof("commit id: %v", CommitID)
}
