// Package config loads Press project settings and runs Starlark
// configuration scripts against an engine.
//
// # Settings
//
// A project is described by press.yaml or press.cue next to the site. YAML
// files are decoded with gopkg.in/yaml.v3; CUE files are first unified with
// a small schema so type and range mistakes are reported with file
// positions. Both are then checked with go-playground/validator:
//
//	s, err := config.LoadSettings("press.yaml")
//	if err != nil {
//	    var se *config.SettingsError
//	    if errors.As(err, &se) {
//	        for _, d := range se.Diagnostics {
//	            fmt.Println(d)
//	        }
//	    }
//	}
//
// # Configuration Scripts
//
// Configurator implements engine.Configurator. A script is plain Starlark
// with a few predeclared builtins:
//
//	pipeline([name,] *modules)   adds a pipeline and returns its name
//	set_meta(key, value)         sets an engine metadata entry
//	root_folder(path)            replaces the engine root folder
//	warn(msg)                    reports a warning diagnostic
//	struct(**kwargs)             builds a record value
//
// plus one constructor per registered module (read_files, front_matter,
// meta, replace, content, concat). A top-level metadata dict is merged into
// the engine metadata after the script finishes:
//
//	metadata = {"title": "My Site"}
//
//	pipeline("Pages",
//	    read_files("input/*.md"),
//	    front_matter(),
//	)
//
// An empty script configures the default Pages and Resources pipelines.
// Compile and runtime errors become error diagnostics with the script
// position and fail Configure with an engine configuration error. Warnings
// and print output are routed to the engine trace.
package config
