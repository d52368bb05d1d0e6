// Package config provides the configuration object for tunguard.
//
// Configuration is layered: built-in defaults (NewConfig), an optional YAML
// file (LoadConfigFile / ApplyFile), environment variables and a .env file
// (LoadEnv / ApplyEnv), and finally CLI flags applied by the command layer.
// Validate is called once after all layers are applied.
package config
