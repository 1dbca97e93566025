package config

import "git.home.luguber.info/inful/assetpack/internal/foundation"

var (
	modes = foundation.NewEnum("mode", ModeDevelopment, ModeProduction)
	// devtool: false is the common spelling for no source maps.
	devtools    = foundation.NewEnum("devtool", DevtoolNone, DevtoolSourceMap, DevtoolInlineSourceMap).WithAlias("false", DevtoolNone)
	unmatched   = foundation.NewEnum("module.unmatched policy", UnmatchedPassthrough, UnmatchedIgnore, UnmatchedReject)
	precedences = foundation.NewEnum("module.rule_precedence", PrecedenceFirst, PrecedenceLast).
			WithAlias("first-match", PrecedenceFirst).
			WithAlias("last-match", PrecedenceLast)
	moduleTypes = foundation.NewEnum("module type", TypeJavaScript, TypeAsset, TypeAssetResource, TypeAssetInline, TypeAssetSource)
)

// normalize canonicalizes enum spellings. Unknown values are only lowercased;
// Validate reports them.
func (c *Config) normalize() {
	c.Mode, _ = modes.Normalize(c.Mode)
	if c.Devtool != "" {
		c.Devtool, _ = devtools.Normalize(c.Devtool)
	}
	if c.Module.Unmatched != "" {
		c.Module.Unmatched, _ = unmatched.Normalize(c.Module.Unmatched)
	}
	if c.Module.Precedence != "" {
		c.Module.Precedence, _ = precedences.Normalize(c.Module.Precedence)
	}
	for i := range c.Module.Rules {
		if c.Module.Rules[i].Type != "" {
			c.Module.Rules[i].Type, _ = moduleTypes.Normalize(c.Module.Rules[i].Type)
		}
	}
}
