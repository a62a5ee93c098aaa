package commands

import (
	"fmt"

	"beatmapvault/pkg/types"
)

func packageArg(s string) (types.PackageID, error) {
	id, err := types.ParsePackageID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid beatmapset id %q: %w", s, err)
	}
	return id, nil
}

func versionArg(s string) (types.VersionID, error) {
	id, err := types.ParseVersionID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid version id %q: %w", s, err)
	}
	return id, nil
}
