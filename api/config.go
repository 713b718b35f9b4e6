package api

import (
	"kvflow/client"
)

type Config struct {
	Enabled bool
	Port    int
}

const apiKeyPath = "api"

func PopulateConfig(a client.ConfigPropertyAssigner) (*Config, error) {

	var assignmentOps []func() error

	var enabled bool
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(apiKeyPath+".enabled", client.ValidateBool, func(v any) {
			enabled = v.(bool)
		})
	})

	var port int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(apiKeyPath+".port", client.ValidateInt, func(v any) {
			port = v.(int)
		})
	})

	for _, f := range assignmentOps {
		if err := f(); err != nil {
			return nil, err
		}
	}

	return &Config{Enabled: enabled, Port: port}, nil

}
