package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// credentialKeys are the per-target keys owned by SetCredential.
var credentialKeys = []string{"password_enc", "key_enc", "has_password", "has_key"}

// SetCredential rewrites the credential fields of one target in the config
// file, preserving the rest of the YAML structure and comments.
// Empty blobs remove the corresponding keys.
func SetCredential(configPath, targetID string, cred Credential) error {
	return updateTarget(configPath, targetID, func(targetNode *yaml.Node) {
		for _, key := range credentialKeys {
			removeMapKey(targetNode, key)
		}
		if cred.KeyEnc != "" {
			setMapScalar(targetNode, "key_enc", "!!str", cred.KeyEnc)
			setMapScalar(targetNode, "has_key", "!!bool", "true")
		}
		if cred.PasswordEnc != "" {
			setMapScalar(targetNode, "password_enc", "!!str", cred.PasswordEnc)
			setMapScalar(targetNode, "has_password", "!!bool", "true")
		}
	})
}

// ClearCredential removes every stored credential of a target.
func ClearCredential(configPath, targetID string) error {
	return SetCredential(configPath, targetID, Credential{})
}

// SetEnabled flips the enabled flag of one target.
func SetEnabled(configPath, targetID string, enabled bool) error {
	return updateTarget(configPath, targetID, func(targetNode *yaml.Node) {
		setMapScalar(targetNode, "enabled", "!!bool", strconv.FormatBool(enabled))
	})
}

// updateTarget loads the file as a yaml.Node tree, applies fn to the mapping
// of the target with the given id, and writes the result back.
func updateTarget(configPath, targetID string, fn func(*yaml.Node)) error {
	info, err := os.Stat(configPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid YAML document structure")
	}

	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	targetsNode := findMapValue(docNode, "targets")
	if targetsNode == nil || targetsNode.Kind != yaml.SequenceNode {
		return fmt.Errorf("'targets' list not found in config")
	}

	var targetNode *yaml.Node
	for _, item := range targetsNode.Content {
		idNode := findMapValue(item, "id")
		if idNode != nil && idNode.Value == targetID {
			targetNode = item
			break
		}
	}
	if targetNode == nil {
		return fmt.Errorf("target '%s' not found in config", targetID)
	}

	fn(targetNode)

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, []byte(buf.String()), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

// setMapScalar sets key to a scalar value, replacing an existing entry.
func setMapScalar(node *yaml.Node, key, tag, value string) {
	if existing := findMapValue(node, key); existing != nil {
		existing.Kind = yaml.ScalarNode
		existing.Tag = tag
		existing.Value = value
		existing.Style = 0
		existing.Content = nil
		return
	}
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// removeMapKey deletes key and its value from a mapping node.
func removeMapKey(node *yaml.Node, key string) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Kind == yaml.ScalarNode && node.Content[i].Value == key {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return
		}
	}
}
