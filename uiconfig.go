package integro

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// UI configuration document carrying the PDO mapping, e.g.
//
//	{ "pdoMapping": {
//	    "rx": { "0x1600": ["0x607A0020"] },
//	    "tx": { "0x1A00": ["0x60640020"] } } }
//
// Keys are hex PDO indexes, values are 32 bit mapping words as hex
// strings. The same document is accepted as YAML.
type UiConfig struct {
	PdoMapping UiPdoMapping `json:"pdoMapping" yaml:"pdoMapping"`
}

type UiPdoMapping struct {
	Rx map[string][]string `json:"rx" yaml:"rx"`
	Tx map[string][]string `json:"tx" yaml:"tx"`
}

// Expand one direction of the hex string mapping into ordered entries.
// PDO indexes are visited in ascending order, words in document order.
func expandUiMapping(direction map[string][]string) ([]PdoMappingEntry, error) {
	type pdo struct {
		index uint16
		words []string
	}
	pdos := make([]pdo, 0, len(direction))
	for key, words := range direction {
		if !strings.HasPrefix(key, "0x") && !strings.HasPrefix(key, "0X") {
			return nil, fmt.Errorf("pdo index %q: missing 0x prefix", key)
		}
		index, err := ParseHex(key, 16)
		if err != nil {
			return nil, fmt.Errorf("pdo index %q: %w", key, err)
		}
		pdos = append(pdos, pdo{index: uint16(index), words: words})
	}
	sort.Slice(pdos, func(i, j int) bool { return pdos[i].index < pdos[j].index })

	entries := []PdoMappingEntry{}
	for _, p := range pdos {
		for _, wordStr := range p.words {
			if !strings.HasPrefix(wordStr, "0x") && !strings.HasPrefix(wordStr, "0X") {
				return nil, fmt.Errorf("mapping word %q: missing 0x prefix", wordStr)
			}
			word, err := ParseHex(wordStr, 32)
			if err != nil {
				return nil, fmt.Errorf("mapping word %q: %w", wordStr, err)
			}
			entries = append(entries, DecodePdoMappingWord(p.index, uint32(word)))
		}
	}
	return entries, nil
}

// Mappings converts the hex string document into PdoMappings
func (config *UiConfig) Mappings() (*PdoMappings, error) {
	rx, err := expandUiMapping(config.PdoMapping.Rx)
	if err != nil {
		return nil, fmt.Errorf("rx: %w", err)
	}
	tx, err := expandUiMapping(config.PdoMapping.Tx)
	if err != nil {
		return nil, fmt.Errorf("tx: %w", err)
	}
	return &PdoMappings{RxPdos: rx, TxPdos: tx}, nil
}

// ParsePdoConfigJSON parses a UI config JSON document
func ParsePdoConfigJSON(buffer []byte) (*PdoMappings, error) {
	var config UiConfig
	if err := json.Unmarshal(buffer, &config); err != nil {
		return nil, err
	}
	return config.Mappings()
}

// ParsePdoConfigYAML parses the YAML flavour of the UI config
func ParsePdoConfigYAML(buffer []byte) (*PdoMappings, error) {
	var config UiConfig
	if err := yaml.Unmarshal(buffer, &config); err != nil {
		return nil, err
	}
	return config.Mappings()
}

// LoadPdoConfig reads a UI config file, picking the decoder by extension.
// Anything that is not .yaml/.yml is treated as JSON.
func LoadPdoConfig(path string) (*PdoMappings, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParsePdoConfigYAML(buffer)
	default:
		return ParsePdoConfigJSON(buffer)
	}
}
