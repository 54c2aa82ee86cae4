package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/cli/output"
	"github.com/yndnr/meshp2p-go/internal/infra/buildinfo"
)

// VersionInfo is the output of version.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Table implements output.Tabular.
func (v VersionInfo) Table(bool) *output.Table {
	t := &output.Table{Headers: []string{"VERSION", "COMMIT", "BUILT", "GO"}}
	t.AddRow(v.Version, v.Commit, v.BuildTime, v.GoVersion)
	return t
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			return printResult(c, VersionInfo{
				Version:   info.Version,
				Commit:    info.Commit,
				BuildTime: info.BuildTime,
				GoVersion: info.GoVersion,
			})
		},
	}
}
