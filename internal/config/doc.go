// Package config loads emporium settings.
//
// Load reads a YAML file (or TOML when the path ends in ".toml") and fills
// every missing or blank field with a default, so the tools run without any
// configuration present:
//
//   - Config file: ~/.config/emporium/config.yaml
//   - Database: ~/.local/share/emporium/local.db
//   - Hub socket: ~/.local/share/emporium/hub.sock
//   - Channel: first-emporium-image-sync
//   - Namespace: first-emporium
//   - Country code: 673
//   - Time zone: Asia/Brunei
//
// Paths accept a leading "~" and are resolved to absolute form. Unknown YAML
// keys are rejected.
//
// Example config.yaml:
//
//	database: ~/emporium/local.db
//	store_number: "7123456"
//	time_zone: Asia/Brunei
//	catalog: ~/emporium/catalog.cue
package config
