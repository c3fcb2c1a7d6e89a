package registry

import (
	consulapi "github.com/hashicorp/consul/api"
)

// Instance is one running copy of a service as announced to the registry.
type Instance struct {
	ID      string // unique per process, e.g. name-host-port
	Name    string // logical name shared by all copies
	Address string
	Port    int
	Tags    []string
	Meta    map[string]string
	Check   *consulapi.AgentServiceCheck
}

// ServiceRegistry announces this process to service discovery.
type ServiceRegistry interface {
	Register(inst Instance) error
	Deregister(id string) error
}
