package models

// VersionResponse is the body of the version endpoint.
type VersionResponse struct {
	Version     string `json:"version"`
	BuildDate   string `json:"build_date,omitempty"`
	BuildCommit string `json:"build_commit,omitempty"`
}

// NewVersionResponse renders build information for the version endpoint.
func NewVersionResponse(info AppBuildInfo) VersionResponse {
	return VersionResponse{
		Version:     info.BuildVersion(),
		BuildDate:   info.BuildDate(),
		BuildCommit: info.BuildCommit(),
	}
}
