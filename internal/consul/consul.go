// Package consul registers this service with the local agent and resolves
// the addresses of external collaborators (the SMS gateway in particular).
package consul

import (
	"fmt"
	"os"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// NewClient connects to the agent named by CONSUL_HTTP_ADDR (library
// default when unset).
func NewClient() (*consulapi.Client, error) {
	config := consulapi.DefaultConfig()
	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers this instance under the given name.
func RegisterService(client *consulapi.Client, serviceName, address string, port int) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", serviceName, address, port),
		Name:    serviceName,
		Address: address,
		Port:    port,
	}
	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("registering %s with consul: %w", serviceName, err)
	}
	return nil
}

// GetServiceAddress returns the address and port of a healthy instance of
// the named service.
func GetServiceAddress(client *consulapi.Client, serviceName string) (string, int, error) {
	services, _, err := client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return "", 0, fmt.Errorf("querying consul for %s: %w", serviceName, err)
	}
	if len(services) == 0 {
		return "", 0, fmt.Errorf("no healthy instances of %s", serviceName)
	}
	svc := services[0].Service
	address := svc.Address
	if address == "" {
		address = services[0].Node.Address
	}
	return address, svc.Port, nil
}

// ServicePort reads the port this instance should advertise, defaulting to
// 8080.
func ServicePort() int {
	port, err := strconv.Atoi(os.Getenv("SERVICE_PORT"))
	if err != nil || port <= 0 {
		return 8080
	}
	return port
}
