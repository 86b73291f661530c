package domain

type BuildInfo struct {
	Version string
	Commit  string
}

var Build BuildInfo
