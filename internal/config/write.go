package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/statwatch/internal/errors"
)

// Marshal renders cfg as a commented YAML document. The node tree is built by
// hand so durations come out as "3s" rather than nanosecond integers.
func Marshal(cfg *Config) ([]byte, error) {
	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{
			mapping(
				"version", intNode(cfg.Version),
				"server", withComment(mapping(
					"url", strNode(cfg.Server.URL),
					"api_url", withLineComment(strNode(cfg.Server.APIURL), "defaults to server.url"),
				), "Telemetry backend"),
				"stream", mapping(
					"endpoint", strNode(cfg.Stream.Endpoint),
					"topic", strNode(cfg.Stream.Topic),
					"reconnect_delay", durationNode(cfg.Stream.ReconnectDelay),
					"heartbeat", durationNode(cfg.Stream.Heartbeat),
					"handshake_timeout", durationNode(cfg.Stream.HandshakeTimeout),
				),
				"export", mapping(
					"dir", strNode(cfg.Export.Dir),
				),
				"log", mapping(
					"level", strNode(cfg.Log.Level),
					"file", withLineComment(strNode(cfg.Log.File), "empty logs to stderr"),
					"max_size_mb", intNode(cfg.Log.MaxSizeMB),
					"max_backups", intNode(cfg.Log.MaxBackups),
					"max_age_days", intNode(cfg.Log.MaxAgeDays),
				),
				"monitor", mapping(
					"refresh", durationNode(cfg.Monitor.Refresh),
				),
			),
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes cfg to path. An existing file is only replaced when force
// is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s already exists", path),
			"Use --force to overwrite it")
	}

	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to render config", "")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Can't create %s", dir),
				"Check directory permissions")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't write %s", path),
			"Check directory permissions")
	}
	return nil
}

// mapping builds a mapping node from alternating key strings and value nodes.
func mapping(pairs ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		key := strNode(pairs[i].(string))
		val := pairs[i+1].(*yaml.Node)
		if val.HeadComment != "" {
			key.HeadComment, val.HeadComment = val.HeadComment, ""
		}
		n.Content = append(n.Content, key, val)
	}
	return n
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func durationNode(d time.Duration) *yaml.Node {
	return strNode(d.String())
}

func withComment(n *yaml.Node, comment string) *yaml.Node {
	n.HeadComment = comment
	return n
}

func withLineComment(n *yaml.Node, comment string) *yaml.Node {
	n.LineComment = comment
	return n
}
