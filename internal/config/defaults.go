package config

// Built-in loader names.
const (
	LoaderHTML       = "html-loader"
	LoaderCSS        = "css-loader"
	LoaderCSSExtract = "css-extract-loader"
	LoaderBabel      = "babel-loader"
	LoaderMarkdown   = "markdown-loader"
)

// Built-in plugin names.
const (
	PluginHTML       = "html"
	PluginCSSExtract = "css-extract"
	PluginHotReload  = "hot-reload"
	PluginManifest   = "manifest"
)

const (
	DefaultEntry               = "./src/index.js"
	DefaultOutputPath          = "build"
	DefaultOutputFilename      = "[name].js"
	DefaultAssetModuleFilename = "assets/[hash][ext][query]"
	DefaultPublicPath          = "/"
	DefaultTemplate            = "./src/index.html"
	DefaultCSSFilename         = "[name].[contenthash].css"
	DefaultDevServerPort       = 3000
	DefaultDevServerHost       = "localhost"
	DefaultCacheDirectory      = ".cache/assetpack"
)

// ImageRuleTest matches the image files handled as asset modules.
const ImageRuleTest = `(?i)\.(png|jpe?g|gif|svg|webp|ico)$`

// Default returns the built-in configuration for the given environment.
func Default(env Env) *Config {
	return defaultsFor(env.Mode(), env.Serve)
}

func defaultsFor(mode Mode, serve bool) *Config {
	imageType := imageTypeFor(mode)

	plugins := []PluginConfig{
		{Name: PluginHTML, Options: map[string]any{"template": DefaultTemplate}},
		{Name: PluginCSSExtract, Options: map[string]any{"filename": DefaultCSSFilename}},
	}
	if serve {
		plugins = append(plugins, PluginConfig{Name: PluginHotReload})
	}

	return &Config{
		Mode:    mode,
		Entry:   DefaultEntry,
		Devtool: DevtoolSourceMap,
		Output: OutputConfig{
			Path:                DefaultOutputPath,
			Filename:            DefaultOutputFilename,
			AssetModuleFilename: DefaultAssetModuleFilename,
			PublicPath:          DefaultPublicPath,
			Clean:               true,
		},
		Module: ModuleConfig{
			Rules: []RuleConfig{
				{Test: `\.(html)$`, Use: []LoaderRef{{Loader: LoaderHTML}}},
				{Test: `\.(css)$`, Use: []LoaderRef{{Loader: LoaderCSSExtract}, {Loader: LoaderCSS}}},
				{Test: ImageRuleTest, Type: imageType},
				{
					Test:    `\.(js|jsx)$`,
					Exclude: `node_modules`,
					Use: []LoaderRef{{
						Loader:  LoaderBabel,
						Options: map[string]any{"cacheDirectory": true},
					}},
				},
				{Test: `\.(md|markdown)$`, Use: []LoaderRef{{Loader: LoaderMarkdown}}},
			},
			Unmatched:  UnmatchedPassthrough,
			Precedence: PrecedenceFirst,
		},
		Plugins: plugins,
		DevServer: DevServerConfig{
			Hot:             true,
			Port:            DefaultDevServerPort,
			Host:            DefaultDevServerHost,
			HistoryFallback: true,
		},
		Cache: CacheConfig{Directory: DefaultCacheDirectory},
	}
}

// imageTypeFor inlines small images in production and always emits files in development.
func imageTypeFor(mode Mode) ModuleType {
	if mode == ModeProduction {
		return TypeAsset
	}
	return TypeAssetResource
}

// retargetImageRule switches the built-in image rule to the type of the new mode,
// leaving rules the user changed alone.
func (c *Config) retargetImageRule(from, to Mode) {
	for i := range c.Module.Rules {
		r := &c.Module.Rules[i]
		if r.Test == ImageRuleTest && r.Type == imageTypeFor(from) {
			r.Type = imageTypeFor(to)
		}
	}
}
