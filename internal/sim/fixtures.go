// Package sim generates plausible inventory fixtures for load and demo
// tooling running against a live API.
package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// ServerFixture is one synthetic server record ready to submit.
type ServerFixture struct {
	Name            string
	Hostname        string
	EnvironmentType string
	OperatingSystem string
	OSVersion       string
	CPUCores        int
	MemoryGB        int
	Public          bool
}

// Scenario names the pools the generator draws from.
type Scenario struct {
	Name         string
	Prefixes     []string
	Environments []string
	Systems      []string
}

// DatacenterRefreshScenario models a fleet migration: a mix of legacy
// hosts and fresh virtual machines across environments.
func DatacenterRefreshScenario() Scenario {
	return Scenario{
		Name:         "DatacenterRefresh",
		Prefixes:     []string{"web", "app", "db", "cache", "batch", "mq"},
		Environments: []string{"virtual", "physical", "container", "cloud"},
		Systems:      []string{"debian", "ubuntu", "rhel", "windows-server"},
	}
}

// Generator produces random fixtures from a scenario.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
	seq      int
}

func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: DatacenterRefreshScenario(), rnd: rand.New(rand.NewSource(seed))}
}

// NextServer returns a fixture with a unique hostname within this
// generator's run.
func (g *Generator) NextServer() ServerFixture {
	g.seq++
	prefix := g.scenario.Prefixes[g.rnd.Intn(len(g.scenario.Prefixes))]
	name := fmt.Sprintf("%s-%03d", prefix, g.seq)
	return ServerFixture{
		Name:            name,
		Hostname:        fmt.Sprintf("%s.%s.example.net", name, g.scenario.Name),
		EnvironmentType: g.scenario.Environments[g.rnd.Intn(len(g.scenario.Environments))],
		OperatingSystem: g.scenario.Systems[g.rnd.Intn(len(g.scenario.Systems))],
		OSVersion:       fmt.Sprintf("%d.%d", 8+g.rnd.Intn(6), g.rnd.Intn(10)),
		CPUCores:        2 << g.rnd.Intn(4),
		MemoryGB:        4 << g.rnd.Intn(5),
		Public:          g.rnd.Intn(3) == 0,
	}
}

// OverrideScenario swaps the fixture pools, for tests.
func (g *Generator) OverrideScenario(s Scenario) {
	g.scenario = s
}
