package cmd

import (
	"fmt"

	"golang.org/x/mod/semver"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  `Print the CLI version and build time.`,
		Usage: "hooks version",
		Run:   runVersion,
	})
}

func runVersion(_ []string) error {
	v := Version
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid build version %q", v)
	}
	fmt.Fprintf(stdout, "hooks CLI version %s (built %s)\n", semver.Canonical(v), BuildTime)
	return nil
}
