package provider

import (
	"maps"

	"github.com/tomyan/hinclude-e2e/internal/config"
	"github.com/tomyan/hinclude-e2e/internal/matrix"
	"github.com/tomyan/hinclude-e2e/internal/webdriver"
)

// Capabilities builds the flat capability bag for one remote session: grid
// metadata first, then the descriptor's own fields, which win on collision.
// Each call returns a new map.
func Capabilities(grid config.Grid, d matrix.Descriptor) map[string]interface{} {
	caps := map[string]interface{}{
		"username":  grid.Username,
		"accessKey": grid.AccessKey,
	}
	if grid.TunnelID != "" {
		caps["tunnel-identifier"] = grid.TunnelID
	}
	if grid.Build != "" {
		caps["build"] = grid.Build
	}
	maps.Copy(caps, d.Capabilities())
	return caps
}

// sessionRequest wraps the bag for both W3C and legacy grids. W3C grids take
// vendor fields under sauce:options and the renamed standard keys.
func sessionRequest(grid config.Grid, d matrix.Descriptor) webdriver.NewSessionRequest {
	desired := Capabilities(grid, d)

	sauceOptions := map[string]interface{}{
		"username":  grid.Username,
		"accessKey": grid.AccessKey,
		"name":      d.String(),
	}
	if grid.TunnelID != "" {
		sauceOptions["tunnelIdentifier"] = grid.TunnelID
	}
	if grid.Build != "" {
		sauceOptions["build"] = grid.Build
	}

	always := webdriver.Capability{
		"browserName":   d.BrowserName(),
		"sauce:options": sauceOptions,
	}
	if v := d.Version(); v != "" {
		always["browserVersion"] = v
	}
	if p := d.Platform(); p != "" {
		always["platformName"] = p
	}

	return webdriver.NewSessionRequest{
		Capabilities: webdriver.Capabilities{AlwaysMatch: always},
		Desired:      desired,
	}
}
