package common

import (
	"fmt"
	"strings"
)

// Set with -ldflags "-X github.com/WangYihang/lazyscan/pkg/common.Version=..."
var (
	// Version is the release of the program
	Version = "0.0.0"
	// CommitHash is the commit the program was built from
	CommitHash = "unknown"
	// BuildTime is the time the program was built
	BuildTime = "unknown"
)

// ProgramVersion is the version object of the program
type ProgramVersion struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// Current returns the version the binary was built with
func Current() ProgramVersion {
	return ProgramVersion{Version: Version, CommitHash: CommitHash, BuildTime: BuildTime}
}

// Short returns the short version of the program
func (v ProgramVersion) Short() string {
	return fmt.Sprintf("v%s-%s-%s", v.Version, v.CommitHash, v.BuildTime)
}

// String returns the verbose version of the program
func (v ProgramVersion) String() string {
	var sb strings.Builder
	sb.WriteString("lazyscan\n")
	sb.WriteString("Author: Yihang Wang\n")
	fmt.Fprintf(&sb, "Version: v%s\n", v.Version)
	fmt.Fprintf(&sb, "Commit: %s\n", v.CommitHash)
	fmt.Fprintf(&sb, "Build Date: %s", v.BuildTime)
	return sb.String()
}
