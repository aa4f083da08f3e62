package frontend

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration for the REST daemon. Flat on purpose: the daemon only
// needs to know where to listen and which database to reach.
type FrontendConfig struct {
	// port the daemon listens on.
	ServerPort string `yaml:"port"`

	// Connection string for database.
	DBURI string `yaml:"dburi"`
}

func LoadFrontendConfig(filepath string) (*FrontendConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*FrontendConfig, error) {
	var out FrontendConfig
	err := yaml.Unmarshal(conf, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
